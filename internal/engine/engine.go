// Package engine wires a deck to the audio coordinator, the slide sequencer,
// the exporter and the event journal. It is the single owner of those
// services for the duration of one playback session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/audio"
	"github.com/ivlev/bronify/internal/config"
	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/export"
	"github.com/ivlev/bronify/internal/journal"
	"github.com/ivlev/bronify/internal/logging"
	"github.com/ivlev/bronify/internal/sequencer"
	"github.com/ivlev/bronify/internal/story"
	"github.com/ivlev/bronify/internal/visual"
)

// headlessFallback resumes interactive slides when nobody is at the keyboard.
const headlessFallback = 5 * time.Second

var ErrNoVisual = errors.New("slide has no visual to share")

type Player struct {
	Config  *config.Config
	Deck    *deck.Deck
	Audio   *audio.Coordinator
	Story   *story.Story
	Seq     *sequencer.Sequencer
	Export  *export.Exporter
	Journal *journal.Journal

	log     *zap.Logger
	unlocks sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type options struct {
	backend  audio.Backend
	clock    sequencer.Clock
	journal  *journal.Journal
	sharer   export.Sharer
	chrome   export.Chrome
	observer sequencer.Observer
	seed     uint64
}

type Option func(*options)

func WithBackend(b audio.Backend) Option { return func(o *options) { o.backend = b } }

func WithClock(c sequencer.Clock) Option { return func(o *options) { o.clock = c } }

// WithJournal records player events. The caller keeps ownership of j.
func WithJournal(j *journal.Journal) Option { return func(o *options) { o.journal = j } }

func WithSharer(s export.Sharer) Option { return func(o *options) { o.sharer = s } }

func WithChrome(c export.Chrome) Option { return func(o *options) { o.chrome = c } }

// WithObserver adds hooks called after the player's own bookkeeping.
func WithObserver(obs sequencer.Observer) Option { return func(o *options) { o.observer = obs } }

func WithSeed(seed uint64) Option { return func(o *options) { o.seed = seed } }

func New(cfg *config.Config, d *deck.Deck, logger *zap.Logger, opts ...Option) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{seed: uint64(time.Now().UnixNano())}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		if cfg.Mute {
			o.backend = audio.NopBackend{}
		} else {
			o.backend = audio.NewEbitenBackend(cfg.Audio.SampleRate, cfg.Audio.UnlockWait)
		}
	}

	exp, err := export.New(cfg,
		export.WithSharer(o.sharer),
		export.WithChrome(o.chrome),
		export.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		Config:  cfg,
		Deck:    d,
		Audio:   audio.NewCoordinator(o.backend, audio.OptionsFromConfig(cfg.Audio), logger),
		Export:  exp,
		Journal: o.journal,
		log:     logger.Named("player"),
		ctx:     ctx,
		cancel:  cancel,
	}

	fallback := cfg.InteractiveFallback
	if cfg.Headless && fallback <= 0 {
		fallback = headlessFallback
	}
	p.Story = story.Build(story.Env{
		Deck:     d,
		Root:     cfg.AssetsDir,
		Audio:    p.Audio,
		Log:      logger,
		Fallback: fallback,
		Seed:     o.seed,
	})

	seqOpts := []sequencer.Option{
		sequencer.WithObserver(p.observer(o.observer)),
		sequencer.WithLogger(logger),
		sequencer.WithDefaultInterval(cfg.DefaultInterval),
	}
	if o.clock != nil {
		seqOpts = append(seqOpts, sequencer.WithClock(o.clock))
	}
	p.Seq = sequencer.New(p.Story.Descriptors, seqOpts...)

	p.log.Info("player ready",
		zap.String("deck", d.Title),
		zap.Int("slides", len(d.Slides)),
		zap.String("session", p.Seq.Session().ID()))
	return p, nil
}

// Start is the user gesture: it fires the audio unlock without waiting for
// it and starts the stories immediately.
func (p *Player) Start() {
	logging.Event(p.log, "Start Experience button clicked")
	p.record(-1, "start", nil)

	p.unlocks.Add(1)
	go func() {
		defer p.unlocks.Done()
		if !p.Audio.Unlock(p.ctx) {
			p.log.Warn("audio unlock failed (will retry on first story)")
		}
	}()

	p.Seq.Start()
	p.log.Info("stories starting")
}

// Active returns the index and renderer of the slide on screen.
func (p *Player) Active() (int, story.Slide) {
	snap := p.Seq.Snapshot()
	if snap.State != sequencer.Playing && snap.State != sequencer.Paused {
		return -1, nil
	}
	if snap.ActiveIndex < 0 || snap.ActiveIndex >= len(p.Story.Slides) {
		return -1, nil
	}
	return snap.ActiveIndex, p.Story.Slides[snap.ActiveIndex]
}

// Share captures the active slide's visual into a card and shares it.
func (p *Player) Share(ctx context.Context) (export.Result, error) {
	idx, sl := p.Active()
	if sl == nil {
		return export.Result{}, ErrNoVisual
	}
	return p.ShareSlide(ctx, idx, sl.Spec())
}

// ShareSlide captures the visual of a given deck slide.
func (p *Player) ShareSlide(ctx context.Context, idx int, slide deck.Slide) (export.Result, error) {
	if slide.Visual == "" {
		return export.Result{}, fmt.Errorf("%w: %s", ErrNoVisual, slide.ID)
	}
	src, err := visual.Open(p.Deck.Resolve(p.Config.AssetsDir, slide.Visual))
	if err != nil {
		return export.Result{}, fmt.Errorf("open visual of %s: %w", slide.ID, err)
	}
	defer src.Close()

	res, err := p.Export.CaptureAndShare(ctx, src, 0, export.SafeName(slide.Title()))
	switch {
	case errors.Is(err, export.ErrCancelled):
		return res, err
	case err != nil:
		p.record(idx, "share_failed", map[string]string{"error": err.Error()})
		return res, err
	}
	p.record(idx, "share_success", map[string]string{"method": res.Method, "location": res.Location})
	return res, nil
}

func (p *Player) Wait(ctx context.Context) error {
	return p.Seq.Wait(ctx)
}

// Close stops playback and releases audio. It does not close the journal.
func (p *Player) Close() error {
	p.Seq.Stop()
	p.cancel()
	p.unlocks.Wait()
	return p.Audio.Close()
}

func (p *Player) observer(next sequencer.Observer) sequencer.Observer {
	return sequencer.Observer{
		OnSlideStart: func(i int, d sequencer.Descriptor) {
			logging.Event(p.log, fmt.Sprintf("Story %d started", i+1), zap.Int("storyIndex", i), zap.String("slide", d.Name),
				zap.Bool("interactive", p.Deck.Slides[i].IsInteractive()))
			p.record(i, "slide_start", nil)
			if next.OnSlideStart != nil {
				next.OnSlideStart(i, d)
			}
		},
		OnSlideEnd: func(i int, d sequencer.Descriptor) {
			logging.Event(p.log, fmt.Sprintf("Story %d ended", i+1), zap.Int("storyIndex", i))
			p.record(i, "slide_end", nil)
			p.recordChoice(i)
			if next.OnSlideEnd != nil {
				next.OnSlideEnd(i, d)
			}
		},
		OnComplete: func() {
			logging.Event(p.log, "All stories completed!")
			p.record(-1, "complete", nil)
			if next.OnComplete != nil {
				next.OnComplete()
			}
		},
		OnState: next.OnState,
	}
}

func (p *Player) recordChoice(i int) {
	q := p.Deck.Slides[i].Quiz
	if q == nil || q.IsTrivia() {
		return
	}
	if choice, ok := p.Seq.Session().Get(q.SessionKey()); ok {
		p.record(i, "quiz_choice", map[string]string{"choice": choice})
	}
}

func (p *Player) record(slide int, name string, fields map[string]string) {
	if p.Journal == nil {
		return
	}
	err := p.Journal.Record(context.Background(), journal.Event{
		Session: p.Seq.Session().ID(),
		Slide:   slide,
		Name:    name,
		Fields:  fields,
	})
	if err != nil {
		p.log.Warn("journal write failed", zap.String("event", name), zap.Error(err))
	}
}
