package engine

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivlev/bronify/internal/audio"
	"github.com/ivlev/bronify/internal/config"
	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/export"
	"github.com/ivlev/bronify/internal/journal"
	"github.com/ivlev/bronify/internal/sequencer"
	"github.com/ivlev/bronify/internal/sequencer/sequencertest"
	"github.com/ivlev/bronify/internal/story"
)

func testDeck() *deck.Deck {
	return &deck.Deck{
		Title: "test",
		Assets: deck.Assets{
			Images: map[string]string{"card": "card.png"},
		},
		Slides: []deck.Slide{
			{ID: "intro", Duration: 1000, Body: "hello"},
			{ID: "which", Kind: deck.KindQuiz, Duration: 1000, Quiz: &deck.Quiz{
				Prompt: "Which LeBron?",
				Options: []deck.Option{
					{Text: "Cavs", Result: "cavs"},
					{Text: "Heat", Result: "miami"},
					{Text: "Lakers", Result: "lakers"},
				},
			}},
			{ID: "result", Kind: deck.KindResult, Duration: 1000, Results: &deck.Results{Default: "cavs"}},
			{ID: "share", Name: "Share", Kind: deck.KindShare, Duration: 1000, Visual: "card"},
		},
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 54, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 54; x++ {
			img.Set(x, y, color.RGBA{R: 0xcc, A: 0xff})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

type harness struct {
	p       *Player
	clock   *sequencertest.Clock
	journal *journal.Journal
	logs    *observer.ObservedLogs
	dir     string
}

func newHarness(t *testing.T, mutate func(*config.Config), opts ...Option) *harness {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "card.png"))

	cfg := config.Default()
	cfg.AssetsDir = dir
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Width, cfg.Height = 108, 192
	cfg.Mute = true
	if mutate != nil {
		mutate(cfg)
	}

	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	core, logs := observer.New(zap.DebugLevel)
	clock := sequencertest.New()
	opts = append([]Option{WithClock(clock), WithJournal(j), WithSeed(1)}, opts...)
	p, err := New(cfg, testDeck(), zap.New(core), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return &harness{p: p, clock: clock, journal: j, logs: logs, dir: dir}
}

func (h *harness) names(t *testing.T) []string {
	t.Helper()
	events, err := h.journal.Events(context.Background(), h.p.Seq.Session().ID())
	require.NoError(t, err)
	var out []string
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestPlayerRunsDeckAndJournals(t *testing.T) {
	h := newHarness(t, nil)
	h.p.Start()

	_, sl := h.p.Active()
	require.Equal(t, "intro", sl.Spec().ID)

	h.clock.Advance(time.Second)
	_, sl = h.p.Active()
	require.Equal(t, "which", sl.Spec().ID)
	require.True(t, h.p.Seq.Snapshot().IsPaused)

	require.NoError(t, sl.(story.Answerer).Answer(2))
	h.clock.Advance(300 * time.Millisecond)
	require.False(t, h.p.Seq.Snapshot().IsPaused)

	h.clock.Advance(time.Second)
	_, sl = h.p.Active()
	require.Equal(t, "lakers", sl.(*story.ResultSlide).Choice())

	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.p.Wait(context.Background()))

	want := []string{
		"start",
		"slide_start", "slide_end",
		"slide_start", "slide_end", "quiz_choice",
		"slide_start", "slide_end",
		"slide_start", "slide_end",
		"complete",
	}
	require.Empty(t, cmp.Diff(want, h.names(t)))

	require.Equal(t, 1, h.logs.FilterField(zap.String("event", "Story 2 started")).Len())
	require.Equal(t, 1, h.logs.FilterField(zap.String("event", "All stories completed!")).Len())
}

func TestPlayerLogsInteractiveSlides(t *testing.T) {
	h := newHarness(t, nil)
	h.p.Start()
	h.clock.Advance(time.Second)

	started := h.logs.FilterField(zap.Bool("interactive", true)).All()
	require.Len(t, started, 1)
	require.Equal(t, "which", started[0].ContextMap()["slide"])

	intro := h.logs.FilterField(zap.String("event", "Story 1 started")).All()
	require.Len(t, intro, 1)
	require.Equal(t, false, intro[0].ContextMap()["interactive"])
}

func TestPlayerDefaultsChoiceWithoutAnswer(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Headless = true })
	h.p.Start()

	h.clock.Advance(time.Second)
	// headless: квиз сам продолжается через 5s
	h.clock.Advance(headlessFallback)
	h.clock.Advance(time.Second)

	_, sl := h.p.Active()
	require.Equal(t, "cavs", sl.(*story.ResultSlide).Choice())
	require.NotContains(t, h.names(t), "quiz_choice")
}

type recordingObserver struct {
	started []int
}

func TestPlayerChainsObserver(t *testing.T) {
	var rec recordingObserver
	obs := sequencer.Observer{
		OnSlideStart: func(i int, _ sequencer.Descriptor) { rec.started = append(rec.started, i) },
	}
	h := newHarness(t, nil, WithObserver(obs))
	h.p.Start()
	h.clock.Advance(time.Second)
	require.Equal(t, []int{0, 1}, rec.started)
}

type fakeChrome struct{ hidden, shown int }

func (c *fakeChrome) Hide() { c.hidden++ }
func (c *fakeChrome) Show() { c.shown++ }

func TestPlayerShareDownloadsCard(t *testing.T) {
	chrome := &fakeChrome{}
	h := newHarness(t, nil, WithChrome(chrome))
	h.p.Start()
	h.clock.Advance(3 * time.Second)
	h.clock.Advance(300 * time.Millisecond) // квиз без ответа стоит на паузе
	_, sl := h.p.Active()
	require.Equal(t, "which", sl.Spec().ID)

	// шарим последний слайд напрямую
	res, err := h.p.ShareSlide(context.Background(), 3, h.p.Deck.Slides[3])
	require.NoError(t, err)
	require.Equal(t, "download", res.Method)
	require.FileExists(t, res.Location)
	require.Equal(t, 1, chrome.hidden)
	require.Equal(t, 1, chrome.shown)
	require.Contains(t, h.names(t), "share_success")
}

func TestPlayerShareWithoutVisual(t *testing.T) {
	h := newHarness(t, nil)
	h.p.Start()
	_, err := h.p.Share(context.Background())
	require.ErrorIs(t, err, ErrNoVisual)
}

func TestPlayerShareBeforeStart(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.p.Share(context.Background())
	require.ErrorIs(t, err, ErrNoVisual)
}

type cancelSharer struct{}

func (cancelSharer) Method() string { return "native" }
func (cancelSharer) CanShare() bool { return true }
func (cancelSharer) Share(context.Context, export.Card) (string, error) {
	return "", export.ErrCancelled
}

func TestPlayerShareCancelledIsNotJournaled(t *testing.T) {
	h := newHarness(t, nil, WithSharer(cancelSharer{}))
	_, err := h.p.ShareSlide(context.Background(), 3, h.p.Deck.Slides[3])
	require.ErrorIs(t, err, export.ErrCancelled)
	require.NotContains(t, h.names(t), "share_failed")
	require.NotContains(t, h.names(t), "share_success")
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Background = "nope"
	_, err := New(cfg, testDeck(), nil, WithBackend(audio.NopBackend{}))
	require.Error(t, err)
}
