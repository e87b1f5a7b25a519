// Package story turns a deck into slide renderers driven by the sequencer.
// Slides talk to audio only through Play and Stop, and to the sequencer only
// through their SlideContext.
package story

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/audio"
	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/sequencer"
)

var (
	ErrNotActive = errors.New("slide is not active")
	ErrAnswered  = errors.New("already answered")
	ErrNoOption  = errors.New("no such option")
)

// Audio is the part of the audio coordinator slides use.
type Audio interface {
	PlayAsync(ctx context.Context, url string, opts ...audio.PlayOption) <-chan audio.PlayResult
	Stop()
}

// Env carries what every slide needs.
type Env struct {
	Deck  *deck.Deck
	Root  string
	Audio Audio
	Log   *zap.Logger
	// Fallback resumes interactive slides without their own fallback_ms.
	Fallback time.Duration
	// StartWait bounds how long a start_paused slide waits for its track.
	StartWait time.Duration
	Seed      uint64
}

// Slide is a renderer that also exposes its state to the terminal UI.
type Slide interface {
	sequencer.Renderer
	Spec() deck.Slide
	View() View
}

// Answerer is implemented by quiz slides.
type Answerer interface {
	Answer(i int) error
}

// Tapper is implemented by the game slide.
type Tapper interface {
	Tap() error
}

// Skipper is implemented by the video slide.
type Skipper interface {
	Skip() error
}

// View is a snapshot of what a slide shows.
type View struct {
	Title string
	Body  string

	Prompt   string
	Options  []string
	Selected int // -1 до ответа
	Correct  int // -1 если не викторина или ответ ещё не раскрыт
	Revealed bool

	Game *GameView

	VideoPlaying  bool
	VideoProgress float64

	Share bool
}

type Story struct {
	Slides      []Slide
	Descriptors []sequencer.Descriptor
}

// Build creates one renderer per deck slide, in deck order.
func Build(env Env) *Story {
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	if env.StartWait <= 0 {
		env.StartWait = 2 * time.Second
	}
	env.Log = env.Log.Named("story")
	rng := rand.New(rand.NewPCG(env.Seed, env.Seed^0x9e3779b97f4a7c15))

	st := &Story{}
	for i, s := range env.Deck.Slides {
		b := newBase(&env, s)
		var sl Slide
		switch s.EffectiveKind() {
		case deck.KindQuiz:
			sl = &QuizSlide{base: b}
		case deck.KindResult:
			sl = &ResultSlide{base: b}
		case deck.KindGame:
			sl = &GameSlide{base: b, rng: rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))}
		case deck.KindVideo:
			sl = &VideoSlide{base: b}
		case deck.KindShare:
			sl = &StorySlide{base: b, share: true}
		default:
			sl = &StorySlide{base: b}
		}
		st.Slides = append(st.Slides, sl)
		st.Descriptors = append(st.Descriptors, sequencer.Descriptor{
			Name:        s.Title(),
			Duration:    env.Deck.SlideDuration(i, 0),
			Renderer:    sl,
			StartPaused: s.StartPaused,
		})
	}
	return st
}

type base struct {
	env   *Env
	slide deck.Slide

	mu sync.Mutex
	sc *sequencer.SlideContext
}

func newBase(env *Env, s deck.Slide) base {
	return base{env: env, slide: s}
}

func (b *base) Spec() deck.Slide { return b.slide }

func (b *base) bind(sc *sequencer.SlideContext) {
	b.mu.Lock()
	b.sc = sc
	b.mu.Unlock()
}

func (b *base) release() {
	b.mu.Lock()
	b.sc = nil
	b.mu.Unlock()
}

// active returns the mounted context, or nil after unmount.
func (b *base) active() *sequencer.SlideContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc == nil || b.sc.Context().Err() != nil {
		return nil
	}
	return b.sc
}

// play starts a track without waiting for it. Failures are logged and never
// reach the sequencer. The returned channel is closed once the play settled.
func (b *base) play(sc *sequencer.SlideContext, ref string, loop bool) <-chan struct{} {
	done := make(chan struct{})
	if ref == "" || b.env.Audio == nil {
		close(done)
		return done
	}
	url := b.env.Deck.Resolve(b.env.Root, ref)
	opts := []audio.PlayOption{audio.WithLoop(loop)}
	if b.slide.Volume > 0 {
		opts = append(opts, audio.WithVolume(b.slide.Volume))
	}
	if b.slide.FadeIn > 0 {
		opts = append(opts, audio.WithFadeIn(deck.Ms(b.slide.FadeIn)))
	}
	res := b.env.Audio.PlayAsync(sc.Context(), url, opts...)
	go func() {
		defer close(done)
		r, ok := <-res
		if !ok || r.Err == nil || errors.Is(r.Err, audio.ErrSuperseded) || errors.Is(r.Err, context.Canceled) {
			return
		}
		b.env.Log.Warn("slide audio failed",
			zap.String("slide", b.slide.ID),
			zap.String("track", audio.FileName(url)),
			zap.Error(r.Err))
	}()
	return done
}

func (b *base) stopAudio() {
	if b.env.Audio != nil {
		b.env.Audio.Stop()
	}
}

// start signals the sequencer that the slide's countdown may run. A
// start_paused slide waits for its track to begin loading, bounded by
// StartWait.
func (b *base) start(sc *sequencer.SlideContext, playing <-chan struct{}) {
	if !b.slide.StartPaused {
		sc.Action(sequencer.CommandPlay)
		return
	}
	var once sync.Once
	trigger := func() { once.Do(func() { sc.Action(sequencer.CommandPlay) }) }
	sc.After(b.env.StartWait, trigger)
	go func() {
		select {
		case <-playing:
			trigger()
		case <-sc.Context().Done():
		}
	}()
}

// armFallback resumes the sequence if nobody interacts in time.
func (b *base) armFallback(sc *sequencer.SlideContext, resume func()) {
	wait := deck.Ms(b.slide.FallbackMs)
	if wait <= 0 {
		wait = b.env.Fallback
	}
	if wait <= 0 {
		return
	}
	sc.After(wait, func() {
		b.env.Log.Info("interactive slide timed out, resuming",
			zap.String("slide", b.slide.ID), zap.Duration("after", wait))
		resume()
	})
}

func (b *base) baseView() View {
	return View{Title: b.slide.Title(), Body: b.slide.Body, Selected: -1, Correct: -1}
}

// StorySlide shows static content with a background track.
type StorySlide struct {
	base
	share bool
}

func (s *StorySlide) Mount(sc *sequencer.SlideContext) {
	s.bind(sc)
	playing := s.play(sc, s.slide.Track, s.slide.Loop)
	s.start(sc, playing)
}

func (s *StorySlide) Unmount() {
	s.release()
	s.stopAudio()
}

func (s *StorySlide) View() View {
	v := s.baseView()
	v.Share = s.share
	return v
}
