package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type fakeTrack struct {
	url string

	mu      sync.Mutex
	volume  float64
	playing bool
	loop    bool
	history []float64
	plays   int
}

func (t *fakeTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = true
	t.plays++
	return nil
}

func (t *fakeTrack) Pause() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

func (t *fakeTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = v
	t.history = append(t.history, v)
	t.mu.Unlock()
}

func (t *fakeTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *fakeTrack) Rewind() error { return nil }

func (t *fakeTrack) SetLoop(loop bool) {
	t.mu.Lock()
	t.loop = loop
	t.mu.Unlock()
}

func (t *fakeTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *fakeTrack) Close() error { return nil }

func (t *fakeTrack) snapshot() (vol float64, playing bool, history []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume, t.playing, append([]float64(nil), t.history...)
}

type fakeBackend struct {
	mu     sync.Mutex
	tracks map[string]*fakeTrack
	loads  map[string]int
	fail   map[string]error
	gate   chan struct{} // when non-nil, Load blocks until closed

	unlockAttempts atomic.Int32
	unlockErr      error
	unlockGate     chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tracks: make(map[string]*fakeTrack),
		loads:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

func (b *fakeBackend) Unlock(ctx context.Context) error {
	b.unlockAttempts.Add(1)
	if b.unlockGate != nil {
		<-b.unlockGate
	}
	return b.unlockErr
}

func (b *fakeBackend) Load(ctx context.Context, url string) (Track, error) {
	b.mu.Lock()
	b.loads[url]++
	gate := b.gate
	err := b.fail[url]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	t := &fakeTrack{url: url}
	b.tracks[url] = t
	return t, nil
}

func (b *fakeBackend) track(url string) *fakeTrack {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracks[url]
}

func (b *fakeBackend) loadCount(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[url]
}

var errNotFound = errors.New("404")
