package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ivlev/bronify/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by Play when a newer Play or a Stop happened
// while the track was still loading.
var ErrSuperseded = errors.New("audio: play superseded")

// Options tune the coordinator's fades.
type Options struct {
	Volume        float64
	FadeIn        time.Duration
	FadeInSteps   int
	SwitchFadeOut time.Duration
	StopFadeOut   time.Duration
	FadeOutSteps  int
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Audio)
}

func OptionsFromConfig(a config.AudioConfig) Options {
	return Options{
		Volume:        a.Volume,
		FadeIn:        a.FadeIn,
		FadeInSteps:   a.FadeInSteps,
		SwitchFadeOut: a.SwitchFadeOut,
		StopFadeOut:   a.StopFadeOut,
		FadeOutSteps:  a.FadeOutSteps,
	}
}

// PlayOption overrides per-call playback settings.
type PlayOption func(*playSettings)

type playSettings struct {
	volume float64
	loop   bool
	fadeIn time.Duration
}

func WithVolume(v float64) PlayOption {
	return func(s *playSettings) { s.volume = v }
}

func WithLoop(loop bool) PlayOption {
	return func(s *playSettings) { s.loop = loop }
}

func WithFadeIn(d time.Duration) PlayOption {
	return func(s *playSettings) { s.fadeIn = d }
}

// Coordinator owns the track cache and the current track. It is safe for
// concurrent use; slides only talk to it through Play and Stop.
type Coordinator struct {
	backend Backend
	opts    Options
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	fades  sync.WaitGroup

	mu       sync.Mutex
	cache    map[string]*Handle
	pending  map[string]*Handle
	current  *Handle
	unlocked bool
	gen      uint64

	loads   singleflight.Group
	unlocks singleflight.Group
}

func NewCoordinator(backend Backend, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		backend: backend,
		opts:    opts,
		log:     logger.Named("audio"),
		ctx:     ctx,
		cancel:  cancel,
		cache:   make(map[string]*Handle),
		pending: make(map[string]*Handle),
	}
}

func (c *Coordinator) Unlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocked
}

// Unlock performs the one-time unlock. Concurrent callers share a single
// attempt. A failure is logged and leaves the coordinator locked so that a
// later call may try again; it is never returned to the caller.
func (c *Coordinator) Unlock(ctx context.Context) bool {
	if c.Unlocked() {
		c.log.Debug("audio already unlocked")
		return true
	}

	c.log.Info("attempting to unlock audio")
	ch := c.unlocks.DoChan("unlock", func() (interface{}, error) {
		if c.Unlocked() {
			return nil, nil
		}
		if err := c.backend.Unlock(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.unlocked = true
		c.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		c.log.Warn("audio unlock abandoned", zap.Error(ctx.Err()))
		return false
	case res := <-ch:
		if res.Err != nil {
			c.log.Warn("audio unlock failed (will retry on play)", zap.Error(res.Err))
			return false
		}
		if !res.Shared {
			c.log.Info("audio unlocked")
		}
		return true
	}
}

// Lookup returns the handle for url if it is cached or loading.
func (c *Coordinator) Lookup(url string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.cache[url]; ok {
		return h, true
	}
	h, ok := c.pending[url]
	return h, ok
}

// Preload returns the cached handle for url or loads it. Concurrent calls for
// the same url converge on one load; ctx only bounds how long this caller
// waits. Failed loads are not cached.
func (c *Coordinator) Preload(ctx context.Context, url string) (*Handle, error) {
	name := FileName(url)

	c.mu.Lock()
	if h, ok := c.cache[url]; ok {
		c.mu.Unlock()
		c.log.Debug("audio already cached", zap.String("track", name))
		return h, nil
	}
	c.mu.Unlock()

	ch := c.loads.DoChan(url, func() (interface{}, error) {
		c.mu.Lock()
		if h, ok := c.cache[url]; ok {
			c.mu.Unlock()
			return h, nil
		}
		h := newHandle(url)
		c.pending[url] = h
		c.mu.Unlock()

		c.log.Info("loading audio", zap.String("track", name))
		track, err := c.backend.Load(context.WithoutCancel(ctx), url)

		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, url)
		if err != nil {
			h.setFailed()
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		h.setReady(track)
		c.cache[url] = h
		c.log.Info("audio loaded", zap.String("track", name))
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.log.Error("audio load failed", zap.String("track", name), zap.Error(res.Err))
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// Play makes url the current track: the previous track (if different) is
// faded out and paused, the new one is loaded if needed, started silent from
// the beginning and faded in. Play returns once the fade-in ends or ctx is
// done. Every failure is logged; callers that do not care can drop the error.
func (c *Coordinator) Play(ctx context.Context, url string, opts ...PlayOption) (*Handle, error) {
	gen, s := c.begin(url, opts)
	return c.finish(ctx, gen, url, s)
}

// PlayResult is delivered by PlayAsync.
type PlayResult struct {
	Handle *Handle
	Err    error
}

// PlayAsync orders the play against other Play and Stop calls before it
// returns; loading and the fade-in continue in the background. The channel
// receives exactly one result and is then closed.
func (c *Coordinator) PlayAsync(ctx context.Context, url string, opts ...PlayOption) <-chan PlayResult {
	gen, s := c.begin(url, opts)
	out := make(chan PlayResult, 1)
	go func() {
		defer close(out)
		h, err := c.finish(ctx, gen, url, s)
		out <- PlayResult{Handle: h, Err: err}
	}()
	return out
}

func (c *Coordinator) begin(url string, opts []PlayOption) (uint64, playSettings) {
	s := playSettings{volume: c.opts.Volume, fadeIn: c.opts.FadeIn}
	for _, o := range opts {
		o(&s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if prev := c.current; prev != nil && prev.url != url {
		c.current = nil
		c.fadeOutLocked(prev, c.opts.SwitchFadeOut)
	}
	return c.gen, s
}

func (c *Coordinator) finish(ctx context.Context, gen uint64, url string, s playSettings) (*Handle, error) {
	name := FileName(url)

	// разблокировка не удалась раньше: повторяем перед воспроизведением
	if !c.Unlocked() {
		c.Unlock(ctx)
	}

	h, err := c.Preload(ctx, url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// ушли со слайда до конца загрузки
			c.log.Debug("audio play cancelled", zap.String("track", name), zap.Error(err))
		} else {
			c.log.Error("audio play failed", zap.String("track", name), zap.Error(err))
		}
		return nil, err
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("audio play superseded", zap.String("track", name))
		return nil, ErrSuperseded
	}
	c.current = h
	var done <-chan struct{}
	if err = h.start(s.loop); err != nil {
		c.current = nil
	} else {
		done = h.startFade(c.ctx, &c.fades, s.volume, s.fadeIn, c.opts.FadeInSteps, false)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("audio playback rejected", zap.String("track", name), zap.Error(err))
		return nil, fmt.Errorf("play %s: %w", name, err)
	}
	c.log.Info("audio playing", zap.String("track", name), zap.Bool("loop", s.loop))

	select {
	case <-done:
	case <-ctx.Done():
	}
	return h, nil
}

// Stop fades the current track out and clears it. Plays still loading are
// superseded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.current == nil {
		return
	}
	c.log.Debug("audio stop", zap.String("track", FileName(c.current.url)))
	c.fadeOutLocked(c.current, c.opts.StopFadeOut)
	c.current = nil
}

// Current returns the current track, if any.
func (c *Coordinator) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) fadeOutLocked(h *Handle, d time.Duration) {
	h.startFade(c.ctx, &c.fades, 0, d, c.opts.FadeOutSteps, true)
}

// Close stops every fade and releases all cached tracks.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.gen++
	c.current = nil
	c.cancel()
	handles := make([]*Handle, 0, len(c.cache))
	for _, h := range c.cache {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	c.fades.Wait()

	var errs []error
	for _, h := range handles {
		h.mu.Lock()
		h.claimLocked()
		if h.track != nil {
			h.track.Pause()
			if err := h.track.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", FileName(h.url), err))
			}
		}
		h.mu.Unlock()
	}
	return errors.Join(errs...)
}
