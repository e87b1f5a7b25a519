package audio

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"
)

type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Handle is a cached track owned by the Coordinator. Each handle has a single
// fade slot: starting a fade cancels the one in flight, and a cancelled fade
// can no longer touch the track.
type Handle struct {
	url string

	mu         sync.Mutex
	state      LoadState
	track      Track
	fadeID     uint64
	cancelFade context.CancelFunc
}

func newHandle(url string) *Handle {
	return &Handle{url: url, state: Loading}
}

func (h *Handle) URL() string { return h.url }

func (h *Handle) State() LoadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.track == nil {
		return 0
	}
	return h.track.Volume()
}

func (h *Handle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.track != nil && h.track.IsPlaying()
}

func (h *Handle) setReady(t Track) {
	h.mu.Lock()
	h.track = t
	h.state = Ready
	h.mu.Unlock()
}

func (h *Handle) setFailed() {
	h.mu.Lock()
	h.state = Failed
	h.mu.Unlock()
}

// claimLocked invalidates the current fade and returns a fresh slot id.
func (h *Handle) claimLocked() uint64 {
	if h.cancelFade != nil {
		h.cancelFade()
		h.cancelFade = nil
	}
	h.fadeID++
	return h.fadeID
}

// start rewinds the track and starts it silent.
func (h *Handle) start(loop bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.claimLocked()

	h.track.SetLoop(loop)
	h.track.SetVolume(0)
	if err := h.track.Rewind(); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	return h.track.Play()
}

// apply runs fn on the track only while slot id still owns the handle.
func (h *Handle) apply(id uint64, fn func(t Track)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fadeID != id || h.track == nil {
		return false
	}
	fn(h.track)
	return true
}

// startFade ramps the volume from the current value to target in the
// background. The returned channel is closed when the fade ends, whether it
// completed or was cancelled.
func (h *Handle) startFade(parent context.Context, wg *sync.WaitGroup, target float64, d time.Duration, steps int, pauseAtEnd bool) <-chan struct{} {
	ctx, cancel := context.WithCancel(parent)

	h.mu.Lock()
	id := h.claimLocked()
	h.cancelFade = cancel
	from := 0.0
	if h.track != nil {
		from = h.track.Volume()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		defer cancel()

		set := func(v float64) {
			h.apply(id, func(t Track) { t.SetVolume(v) })
		}
		if err := runFade(ctx, set, from, target, d, steps); err != nil {
			return
		}
		if pauseAtEnd {
			h.apply(id, func(t Track) { t.Pause() })
		}
		h.mu.Lock()
		if h.fadeID == id {
			h.cancelFade = nil
		}
		h.mu.Unlock()
	}()
	return done
}

// FileName returns the readable last path element of a track url.
func FileName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}
