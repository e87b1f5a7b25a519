package sequencer

import (
	"context"
	"sync"
	"time"
)

// SlideContext is handed to a renderer on mount. It is only valid while the
// slide is mounted: actions and timers of an unmounted slide are dropped.
type SlideContext struct {
	seq    *Sequencer
	index  int
	epoch  uint64
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers []Timer
}

func newSlideContext(s *Sequencer, index int, epoch uint64) *SlideContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &SlideContext{seq: s, index: index, epoch: epoch, ctx: ctx, cancel: cancel}
}

func (sc *SlideContext) Index() int { return sc.index }

// Context is cancelled when the slide unmounts.
func (sc *SlideContext) Context() context.Context { return sc.ctx }

func (sc *SlideContext) Session() *Session { return sc.seq.session }

// Action signals the sequencer: play starts or resumes the countdown, pause
// suspends it.
func (sc *SlideContext) Action(cmd Command) {
	sc.seq.action(sc.epoch, cmd)
}

// Exit ends the whole sequence from inside a slide.
func (sc *SlideContext) Exit() {
	if sc.ctx.Err() != nil {
		return
	}
	sc.seq.Stop()
}

// After runs fn after d unless the slide unmounts first.
func (sc *SlideContext) After(d time.Duration, fn func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.ctx.Err() != nil {
		return
	}
	t := sc.seq.clock.AfterFunc(d, func() {
		if sc.ctx.Err() != nil {
			return
		}
		fn()
	})
	sc.timers = append(sc.timers, t)
}

func (sc *SlideContext) stopTimers() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, t := range sc.timers {
		t.Stop()
	}
	sc.timers = nil
}
