// Package sequencer advances through an ordered list of timed slides. Each
// slide gets a countdown of its nominal duration; interactive slides can
// pause the countdown and resume it later. Pausing suspends the countdown, it
// never resets it.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Playing
	Paused
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Command is what a slide sends back through its action callback.
type Command string

const (
	CommandPlay  Command = "play"
	CommandPause Command = "pause"
)

// Renderer is the content of one slide.
type Renderer interface {
	Mount(sc *SlideContext)
	Unmount()
}

// Descriptor is one entry of the slide list. Order is display order.
type Descriptor struct {
	Name     string
	Duration time.Duration
	Renderer Renderer
	// StartPaused slides hold the countdown until their first play action.
	StartPaused bool
}

// Snapshot is a consistent view of the sequencer state.
type Snapshot struct {
	State       State
	ActiveIndex int
	IsPaused    bool
	Elapsed     time.Duration
	Remaining   time.Duration
	Duration    time.Duration
	Total       int
}

// Observer hooks are called in transition order, never concurrently.
type Observer struct {
	OnSlideStart func(index int, d Descriptor)
	OnSlideEnd   func(index int, d Descriptor)
	OnComplete   func()
	OnState      func(s Snapshot)
}

type Option func(*Sequencer)

func WithClock(c Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.obs = o }
}

func WithSession(sess *Session) Option {
	return func(s *Sequencer) { s.session = sess }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sequencer) { s.log = l.Named("sequencer") }
}

// WithDefaultInterval sets the duration used for slides without one.
func WithDefaultInterval(d time.Duration) Option {
	return func(s *Sequencer) { s.defaultInterval = d }
}

type Sequencer struct {
	slides          []Descriptor
	clock           Clock
	obs             Observer
	session         *Session
	log             *zap.Logger
	defaultInterval time.Duration

	mu        sync.Mutex
	state     State
	index     int
	remaining time.Duration
	startedAt time.Time
	timer     Timer
	epoch     uint64
	active    *SlideContext
	done      chan struct{}

	// callbacks run outside mu, strictly in the order they were queued
	queue    []func()
	draining bool
}

func New(slides []Descriptor, opts ...Option) *Sequencer {
	s := &Sequencer{
		slides:          append([]Descriptor(nil), slides...),
		clock:           RealClock(),
		log:             zap.NewNop(),
		defaultInterval: 25 * time.Second,
		done:            make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.session == nil {
		s.session = NewSession()
	}
	return s
}

func (s *Sequencer) Session() *Session { return s.session }

func (s *Sequencer) Len() int { return len(s.slides) }

func (s *Sequencer) Slide(i int) Descriptor { return s.slides[i] }

// Done is closed when the sequence reaches Complete.
func (s *Sequencer) Done() <-chan struct{} { return s.done }

// Wait blocks until the sequence completes or ctx is done.
func (s *Sequencer) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start mounts the first slide. Calling Start twice is a no-op.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return
	}
	if len(s.slides) == 0 {
		s.completeLocked()
	} else {
		s.mountLocked(0)
	}
	s.mu.Unlock()
	s.drain()
}

// Pause suspends the countdown of the active slide (hold-to-pause).
func (s *Sequencer) Pause() {
	s.mu.Lock()
	s.pauseLocked()
	s.mu.Unlock()
	s.drain()
}

// Resume restarts the countdown from where it was suspended.
func (s *Sequencer) Resume() {
	s.mu.Lock()
	s.resumeLocked()
	s.mu.Unlock()
	s.drain()
}

// Next ends the active slide now, as if its countdown had expired.
func (s *Sequencer) Next() {
	s.mu.Lock()
	if s.state == Playing || s.state == Paused {
		s.advanceLocked()
	}
	s.mu.Unlock()
	s.drain()
}

// Prev remounts the previous slide, or restarts the first one.
func (s *Sequencer) Prev() {
	s.mu.Lock()
	if s.state == Playing || s.state == Paused {
		target := s.index - 1
		if target < 0 {
			target = 0
		}
		s.unmountLocked()
		s.mountLocked(target)
	}
	s.mu.Unlock()
	s.drain()
}

// Stop ends the sequence early.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.state != Complete {
		if s.state != Idle {
			s.unmountLocked()
		}
		s.completeLocked()
	}
	s.mu.Unlock()
	s.drain()
}

func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       s.state,
		ActiveIndex: s.index,
		IsPaused:    s.state == Paused,
		Total:       len(s.slides),
	}
	if s.state != Playing && s.state != Paused {
		return snap
	}
	snap.Duration = s.durationOf(s.index)
	remaining := s.remaining
	if s.state == Playing {
		remaining -= s.clock.Now().Sub(s.startedAt)
		if remaining < 0 {
			remaining = 0
		}
	}
	snap.Remaining = remaining
	snap.Elapsed = snap.Duration - remaining
	return snap
}

func (s *Sequencer) durationOf(i int) time.Duration {
	if d := s.slides[i].Duration; d > 0 {
		return d
	}
	return s.defaultInterval
}

func (s *Sequencer) mountLocked(i int) {
	s.epoch++
	s.index = i
	s.remaining = s.durationOf(i)
	d := s.slides[i]

	sc := newSlideContext(s, i, s.epoch)
	s.active = sc
	if d.StartPaused {
		s.state = Paused
	} else {
		s.state = Playing
		s.startTimerLocked()
	}

	s.log.Debug("slide mounted",
		zap.Int("index", i),
		zap.String("slide", d.Name),
		zap.Duration("duration", s.remaining),
		zap.Bool("start_paused", d.StartPaused))

	snap := s.snapshotLocked()
	s.enqueue(func() {
		if s.obs.OnSlideStart != nil {
			s.obs.OnSlideStart(i, d)
		}
		if d.Renderer != nil {
			d.Renderer.Mount(sc)
		}
		if s.obs.OnState != nil {
			s.obs.OnState(snap)
		}
	})
}

func (s *Sequencer) unmountLocked() {
	s.stopTimerLocked()
	sc := s.active
	s.active = nil
	if sc == nil {
		return
	}
	sc.cancel()
	d := s.slides[sc.index]
	s.enqueue(func() {
		sc.stopTimers()
		if d.Renderer != nil {
			d.Renderer.Unmount()
		}
		if s.obs.OnSlideEnd != nil {
			s.obs.OnSlideEnd(sc.index, d)
		}
	})
}

func (s *Sequencer) advanceLocked() {
	next := s.index + 1
	s.unmountLocked()
	if next < len(s.slides) {
		s.mountLocked(next)
		return
	}
	s.completeLocked()
}

func (s *Sequencer) completeLocked() {
	s.stopTimerLocked()
	s.state = Complete
	close(s.done)
	s.log.Debug("sequence complete")
	snap := s.snapshotLocked()
	s.enqueue(func() {
		if s.obs.OnComplete != nil {
			s.obs.OnComplete()
		}
		if s.obs.OnState != nil {
			s.obs.OnState(snap)
		}
	})
}

func (s *Sequencer) pauseLocked() {
	if s.state != Playing {
		return
	}
	s.remaining -= s.clock.Now().Sub(s.startedAt)
	if s.remaining < 0 {
		s.remaining = 0
	}
	s.stopTimerLocked()
	s.state = Paused
	s.notifyStateLocked()
}

func (s *Sequencer) resumeLocked() {
	if s.state != Paused {
		return
	}
	s.state = Playing
	s.startTimerLocked()
	s.notifyStateLocked()
}

func (s *Sequencer) notifyStateLocked() {
	if s.obs.OnState == nil {
		return
	}
	snap := s.snapshotLocked()
	s.enqueue(func() { s.obs.OnState(snap) })
}

func (s *Sequencer) startTimerLocked() {
	s.stopTimerLocked()
	s.startedAt = s.clock.Now()
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(s.remaining, func() { s.expire(epoch) })
}

func (s *Sequencer) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sequencer) expire(epoch uint64) {
	s.mu.Lock()
	// таймер мог сработать после паузы или смены слайда
	if epoch != s.epoch || s.state != Playing {
		s.mu.Unlock()
		return
	}
	s.advanceLocked()
	s.mu.Unlock()
	s.drain()
}

// action handles a command from the slide mounted at epoch. Commands from
// slides that are no longer active are ignored.
func (s *Sequencer) action(epoch uint64, cmd Command) {
	s.mu.Lock()
	if epoch != s.epoch || s.state == Complete {
		s.mu.Unlock()
		return
	}
	switch cmd {
	case CommandPlay:
		s.resumeLocked()
	case CommandPause:
		s.pauseLocked()
	default:
		s.log.Warn("unknown slide command", zap.String("command", string(cmd)))
	}
	s.mu.Unlock()
	s.drain()
}

func (s *Sequencer) enqueue(fn func()) {
	s.queue = append(s.queue, fn)
}

func (s *Sequencer) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
