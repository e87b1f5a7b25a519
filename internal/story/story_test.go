package story

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivlev/bronify/internal/audio"
	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/sequencer"
	"github.com/ivlev/bronify/internal/sequencer/sequencertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAudio struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (a *fakeAudio) PlayAsync(_ context.Context, url string, _ ...audio.PlayOption) <-chan audio.PlayResult {
	a.mu.Lock()
	a.calls = append(a.calls, "play "+filepath.Base(url))
	err := a.fail
	a.mu.Unlock()
	out := make(chan audio.PlayResult, 1)
	out <- audio.PlayResult{Err: err}
	close(out)
	return out
}

func (a *fakeAudio) Stop() {
	a.mu.Lock()
	a.calls = append(a.calls, "stop")
	a.mu.Unlock()
}

func (a *fakeAudio) history() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type harness struct {
	clk   *sequencertest.Clock
	audio *fakeAudio
	story *Story
	seq   *sequencer.Sequencer
	logs  *observer.ObservedLogs
}

func newHarness(t *testing.T, d *deck.Deck, fallback time.Duration) *harness {
	t.Helper()
	require.NoError(t, d.Validate())
	// слайды логируют из фоновых горутин, поэтому observer, а не zaptest
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{clk: sequencertest.New(), audio: &fakeAudio{}, logs: logs}
	h.story = Build(Env{
		Deck:     d,
		Root:     "assets",
		Audio:    h.audio,
		Log:      zap.New(core),
		Fallback: fallback,
		Seed:     7,
	})
	h.seq = sequencer.New(h.story.Descriptors,
		sequencer.WithClock(h.clk),
		sequencer.WithLogger(zaptest.NewLogger(t)))
	return h
}

func quizDeck() *deck.Deck {
	return &deck.Deck{
		Assets: deck.Assets{Audio: map[string]string{
			"quiz": "audio/quiz.mp3", "boom": "audio/boom.mp3",
			"cavs": "audio/cavs.mp3", "lakers": "audio/lakers.mp3",
		}},
		Slides: []deck.Slide{
			{ID: "quiz", Kind: deck.KindQuiz, Duration: 30000, Track: "quiz", Quiz: &deck.Quiz{
				Prompt: "Which LeBron?",
				Sound:  "boom",
				Options: []deck.Option{
					{Text: "Carries", Result: "cavs"},
					{Text: "Longevity", Result: "lakers"},
					{Text: "Jordan better", Exit: true},
				},
			}},
			{ID: "result", Kind: deck.KindResult, Duration: 10000, Results: &deck.Results{
				Default: "cavs",
				Tracks:  map[string]string{"cavs": "cavs", "lakers": "lakers"},
				Bodies:  map[string]string{"lakers": "## Lakers Bron"},
			}},
		},
	}
}

func TestStorySlideStartsAndStopsAudio(t *testing.T) {
	d := &deck.Deck{
		Assets: deck.Assets{Audio: map[string]string{"a": "audio/a.mp3"}},
		Slides: []deck.Slide{
			{ID: "one", Duration: 1000, Track: "a", Body: "hello"},
			{ID: "two", Duration: 1000},
		},
	}
	h := newHarness(t, d, 0)
	h.seq.Start()
	require.Equal(t, sequencer.Playing, h.seq.Snapshot().State)
	require.Equal(t, "hello", h.story.Slides[0].View().Body)

	h.clk.Advance(2 * time.Second)
	require.Equal(t, sequencer.Complete, h.seq.Snapshot().State)
	require.Equal(t, []string{"play a.mp3", "stop", "stop"}, h.audio.history())
}

func TestPersonaQuizCarriesChoice(t *testing.T) {
	h := newHarness(t, quizDeck(), 0)
	h.seq.Start()
	require.True(t, h.seq.Snapshot().IsPaused)

	// без ответа викторина ждёт бесконечно
	h.clk.Advance(time.Hour)
	require.Equal(t, 0, h.seq.Snapshot().ActiveIndex)

	quiz := h.story.Slides[0].(*QuizSlide)
	require.NoError(t, quiz.Answer(1))
	require.ErrorIs(t, quiz.Answer(0), ErrAnswered)
	require.Equal(t, 1, quiz.View().Selected)

	h.clk.Advance(300 * time.Millisecond)
	require.False(t, h.seq.Snapshot().IsPaused)
	h.clk.Advance(30 * time.Second)
	require.Equal(t, 1, h.seq.Snapshot().ActiveIndex)

	result := h.story.Slides[1].(*ResultSlide)
	require.Equal(t, "lakers", result.Choice())
	require.Equal(t, "## Lakers Bron", result.View().Body)
	require.Contains(t, h.audio.history(), "play lakers.mp3")
	require.ErrorIs(t, quiz.Answer(0), ErrNotActive)
}

func TestResultDefaultsWithoutChoice(t *testing.T) {
	h := newHarness(t, quizDeck(), 5*time.Second)
	h.seq.Start()
	h.clk.Advance(5 * time.Second)
	require.False(t, h.seq.Snapshot().IsPaused, "fallback resumes the quiz")
	h.clk.Advance(30 * time.Second)

	result := h.story.Slides[1].(*ResultSlide)
	require.Equal(t, "cavs", result.Choice())
	require.Contains(t, h.audio.history(), "play cavs.mp3")
}

func TestQuizExitEndsExperience(t *testing.T) {
	h := newHarness(t, quizDeck(), 0)
	h.seq.Start()
	quiz := h.story.Slides[0].(*QuizSlide)
	require.NoError(t, quiz.Answer(2))
	require.Contains(t, h.audio.history(), "play boom.mp3")

	h.clk.Advance(1500 * time.Millisecond)
	require.Equal(t, sequencer.Complete, h.seq.Snapshot().State)
	_, stored := h.seq.Session().Get(deck.DefaultChoiceKey)
	require.False(t, stored)
}

func TestQuizRejectsUnknownOption(t *testing.T) {
	h := newHarness(t, quizDeck(), 0)
	h.seq.Start()
	err := h.story.Slides[0].(*QuizSlide).Answer(9)
	require.ErrorIs(t, err, ErrNoOption)
	h.seq.Stop()
}

func TestTriviaRevealsThenResumes(t *testing.T) {
	correct := 1
	d := &deck.Deck{Slides: []deck.Slide{
		{ID: "trivia", Kind: deck.KindQuiz, Duration: 1000, Quiz: &deck.Quiz{
			Correct: &correct,
			Options: []deck.Option{{Text: "That's Bron", Detail: "IlyAugust"}, {Text: "Man on the Lakers"}},
		}},
	}}
	h := newHarness(t, d, 0)
	h.seq.Start()
	trivia := h.story.Slides[0].(*QuizSlide)

	v := trivia.View()
	require.False(t, v.Revealed)
	require.Equal(t, -1, v.Correct)
	require.Equal(t, "That's Bron · IlyAugust", v.Options[0])

	require.NoError(t, trivia.Answer(0))
	v = trivia.View()
	require.True(t, v.Revealed)
	require.Equal(t, 1, v.Correct)
	_, stored := h.seq.Session().Get(deck.DefaultChoiceKey)
	require.False(t, stored)

	h.clk.Advance(2499 * time.Millisecond)
	require.True(t, h.seq.Snapshot().IsPaused)
	h.clk.Advance(time.Millisecond)
	require.False(t, h.seq.Snapshot().IsPaused)
	h.clk.Advance(time.Second)
	require.Equal(t, sequencer.Complete, h.seq.Snapshot().State)
}

func TestGameFavoriteWinsAndResumes(t *testing.T) {
	d := &deck.Deck{Slides: []deck.Slide{
		{ID: "game", Kind: deck.KindGame, Duration: 35000, Game: &deck.Game{
			Seconds: 5,
			Players: []string{"ilyaugust", "Talented Blake", "everyone"},
		}},
	}}
	h := newHarness(t, d, 0)
	h.seq.Start()
	game := h.story.Slides[0].(*GameSlide)
	require.True(t, h.seq.Snapshot().IsPaused)
	require.NoError(t, game.Tap())
	require.Equal(t, 3, game.View().Game.Scores[0])

	h.clk.Advance(5 * time.Second)
	v := game.View().Game
	require.True(t, v.Over)
	require.Zero(t, v.TimeLeft)
	require.Empty(t, v.Winner)
	for i := 1; i < len(v.Scores); i++ {
		require.Greater(t, v.Scores[0], v.Scores[i])
	}

	h.clk.Advance(500 * time.Millisecond)
	require.Equal(t, "ilyaugust", game.View().Game.Winner)
	require.True(t, h.seq.Snapshot().IsPaused)

	h.clk.Advance(3500 * time.Millisecond)
	require.False(t, h.seq.Snapshot().IsPaused)
	require.Equal(t, 35*time.Second, h.seq.Snapshot().Remaining)
	h.seq.Stop()
	require.ErrorIs(t, game.Tap(), ErrNotActive)
}

func TestVideoHoldsCountdownForClip(t *testing.T) {
	d := &deck.Deck{
		Assets: deck.Assets{Videos: map[string]string{"goat": "videos/goat.mp4"}},
		Slides: []deck.Slide{
			{ID: "video", Kind: deck.KindVideo, Duration: 60000, Video: &deck.Video{Asset: "goat", LengthMs: 55000, StopAudio: true}},
			{ID: "next", Duration: 1000},
		},
	}
	h := newHarness(t, d, 0)
	h.seq.Start()
	video := h.story.Slides[0].(*VideoSlide)
	require.True(t, video.View().VideoPlaying)
	require.Equal(t, []string{"stop"}, h.audio.history())

	h.clk.Advance(55 * time.Second)
	require.False(t, video.View().VideoPlaying)
	require.False(t, h.seq.Snapshot().IsPaused)
	h.clk.Advance(60 * time.Second)
	require.Equal(t, 1, h.seq.Snapshot().ActiveIndex)
}

func TestVideoSkip(t *testing.T) {
	d := &deck.Deck{Slides: []deck.Slide{
		{ID: "video", Kind: deck.KindVideo, Duration: 1000, Video: &deck.Video{LengthMs: 20000}},
	}}
	h := newHarness(t, d, 0)
	h.seq.Start()
	video := h.story.Slides[0].(*VideoSlide)
	require.NoError(t, video.Skip())
	require.False(t, h.seq.Snapshot().IsPaused)
	h.clk.Advance(time.Second)
	require.Equal(t, sequencer.Complete, h.seq.Snapshot().State)
	require.ErrorIs(t, video.Skip(), ErrNotActive)
}

func TestStartPausedWaitsForTrack(t *testing.T) {
	d := &deck.Deck{
		Assets: deck.Assets{Audio: map[string]string{"a": "audio/a.mp3"}},
		Slides: []deck.Slide{{ID: "one", Duration: 1000, Track: "a", StartPaused: true}},
	}
	h := newHarness(t, d, 0)
	h.seq.Start()
	require.Eventually(t, func() bool { return !h.seq.Snapshot().IsPaused }, time.Second, time.Millisecond)
	h.seq.Stop()
}

func TestAudioFailureDoesNotStall(t *testing.T) {
	d := &deck.Deck{
		Assets: deck.Assets{Audio: map[string]string{"a": "audio/a.mp3"}},
		Slides: []deck.Slide{{ID: "one", Duration: 1000, Track: "a"}},
	}
	h := newHarness(t, d, 0)
	h.audio.fail = errors.New("decode: bad header")
	h.seq.Start()
	h.clk.Advance(time.Second)
	require.Equal(t, sequencer.Complete, h.seq.Snapshot().State)
	require.Eventually(t, func() bool {
		return h.logs.FilterMessage("slide audio failed").Len() == 1
	}, time.Second, time.Millisecond)
}

func TestBuildDefaultDeck(t *testing.T) {
	d := deck.Default()
	st := Build(Env{Deck: d, Root: "assets"})
	require.Len(t, st.Slides, len(d.Slides))
	require.Len(t, st.Descriptors, len(d.Slides))

	kinds := map[deck.Kind]int{}
	for _, s := range st.Slides {
		kinds[s.Spec().EffectiveKind()]++
	}
	require.Equal(t, 2, kinds[deck.KindQuiz])
	require.Equal(t, 1, kinds[deck.KindResult])
	require.Equal(t, 1, kinds[deck.KindGame])
	require.Equal(t, 3, kinds[deck.KindVideo])
	require.Equal(t, 1, kinds[deck.KindShare])
	require.True(t, st.Slides[len(st.Slides)-1].View().Share)
	require.Equal(t, 60*time.Second, st.Descriptors[27].Duration)
}
