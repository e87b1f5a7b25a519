package deck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultDeckOrder(t *testing.T) {
	d := Default()
	require.Len(t, d.Slides, 30)
	require.Equal(t, "intro", d.Slides[0].ID)
	require.Equal(t, KindShare, d.Slides[len(d.Slides)-1].Kind)

	var total time.Duration
	for i := range d.Slides {
		total += d.SlideDuration(i, time.Second)
	}
	// 28 обычных слайдов по 30с, игра 35с, видео GOAT day 60с
	require.Equal(t, 28*30*time.Second+35*time.Second+60*time.Second, total)

	var quiz, result *Slide
	for i := range d.Slides {
		switch d.Slides[i].ID {
		case "which-lebron":
			quiz = &d.Slides[i]
		case "which-lebron-result":
			result = &d.Slides[i]
		}
	}
	require.NotNil(t, quiz)
	require.NotNil(t, result)
	require.False(t, quiz.Quiz.IsTrivia())
	require.True(t, quiz.Quiz.Options[4].Exit)
	require.Equal(t, "cavs", result.Results.Default)
	require.Equal(t, quiz.Quiz.SessionKey(), result.Results.SessionKey())
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	want := Default()
	require.NoError(t, Write(want, path))

	got, err := Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("deck changed after write/read (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	one := 1
	tests := []struct {
		name  string
		deck  Deck
		valid bool
	}{
		{
			name:  "minimal",
			deck:  Deck{Slides: []Slide{{ID: "a"}}},
			valid: true,
		},
		{
			name: "empty",
			deck: Deck{},
		},
		{
			name: "duplicate ids",
			deck: Deck{Slides: []Slide{{ID: "a"}, {ID: "a"}}},
		},
		{
			name: "unknown asset key",
			deck: Deck{Slides: []Slide{{ID: "a", Track: "Nope"}}},
		},
		{
			name:  "literal track path",
			deck:  Deck{Slides: []Slide{{ID: "a", Track: "audio/nope.mp3"}}},
			valid: true,
		},
		{
			name: "persona option without result",
			deck: Deck{Slides: []Slide{{ID: "q", Kind: KindQuiz, Quiz: &Quiz{Options: []Option{{Text: "x"}}}}}},
		},
		{
			name:  "trivia options need no result",
			deck:  Deck{Slides: []Slide{{ID: "q", Kind: KindQuiz, Quiz: &Quiz{Correct: &one, Options: []Option{{Text: "x"}, {Text: "y"}}}}}},
			valid: true,
		},
		{
			name: "trivia correct out of range",
			deck: Deck{Slides: []Slide{{ID: "q", Kind: KindQuiz, Quiz: &Quiz{Correct: &one, Options: []Option{{Text: "x"}}}}}},
		},
		{
			name: "share not last",
			deck: Deck{Slides: []Slide{{ID: "s", Kind: KindShare}, {ID: "a"}}},
		},
		{
			name: "video without length",
			deck: Deck{Slides: []Slide{{ID: "v", Kind: KindVideo, Video: &Video{}}}},
		},
		{
			name: "unknown kind",
			deck: Deck{Slides: []Slide{{ID: "a", Kind: "carousel"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.deck.Validate()
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestResolve(t *testing.T) {
	d := &Deck{Assets: Assets{
		Audio:  map[string]string{"LeRnB": "audio/LeRnB.mp3", "Remote": "https://cdn.example.com/a.mp3"},
		Images: map[string]string{"card": "/abs/card.png"},
	}}
	require.Equal(t, filepath.Join("assets", "audio", "LeRnB.mp3"), d.Resolve("assets", "LeRnB"))
	require.Equal(t, "https://cdn.example.com/a.mp3", d.Resolve("assets", "Remote"))
	require.Equal(t, "/abs/card.png", d.Resolve("assets", "card"))
	require.Equal(t, filepath.Join("assets", "x.mp3"), d.Resolve("assets", "x.mp3"))
	require.Empty(t, d.Resolve("assets", ""))
}

func TestLint(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"short.mp3", "long.mp3", "looped.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	probe = func(path string) (time.Duration, error) {
		if filepath.Base(path) == "long.mp3" {
			return time.Minute, nil
		}
		return 5 * time.Second, nil
	}
	t.Cleanup(func() { probe = defaultProbe })

	d := &Deck{
		Assets: Assets{Audio: map[string]string{"remote": "https://cdn.example.com/x.mp3"}},
		Slides: []Slide{
			{ID: "a", Duration: 30000, Track: "short.mp3"},
			{ID: "b", Duration: 30000, Track: "long.mp3"},
			{ID: "c", Duration: 30000, Track: "looped.mp3", Loop: true},
			{ID: "d", Duration: 30000, Track: "missing.mp3"},
			{ID: "e", Track: "remote"},
		},
	}
	issues, err := Lint(context.Background(), d, root, 25*time.Second, 2)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, "a", issues[0].ID)
	require.Contains(t, issues[0].Message, "not looped")
	require.Equal(t, "d", issues[1].ID)
	require.Equal(t, "file not found", issues[1].Message)
}

func TestLintResultTracksAndFallback(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.mp3", "b.mp3", "plain.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	probe = func(string) (time.Duration, error) { return 5 * time.Second, nil }
	t.Cleanup(func() { probe = defaultProbe })

	d := &Deck{
		Slides: []Slide{
			{ID: "result", Kind: KindResult, Duration: 30000, Loop: true,
				Results: &Results{Default: "a", Tracks: map[string]string{"a": "a.mp3", "b": "b.mp3"}}},
			{ID: "plain", Track: "plain.mp3"},
		},
	}

	issues, err := Lint(context.Background(), d, root, 4*time.Second, 1)
	require.NoError(t, err)
	require.Empty(t, issues)

	issues, err = Lint(context.Background(), d, root, 10*time.Second, 1)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "plain", issues[0].ID)
	require.Contains(t, issues[0].Message, "slide 10s")
}

func TestLintProbeFailureIsReported(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.mp3"), nil, 0644))
	probe = func(string) (time.Duration, error) { return 0, errors.New("ffprobe: exit status 1") }
	t.Cleanup(func() { probe = defaultProbe })

	issues, err := Lint(context.Background(), &Deck{Slides: []Slide{{ID: "a", Track: "bad.mp3"}}}, root, 25*time.Second, 1)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].String(), "ffprobe")
}

func TestBindAudio(t *testing.T) {
	d := Default()
	n := BindAudio(d, []string{"/music/Bron Ballad.mp3", "/music/le_rnb.MP3", "/music/unrelated.mp3"})
	require.Equal(t, 2, n)
	require.Equal(t, "/music/Bron Ballad.mp3", d.Assets.Audio["BronBallad"])
	require.Equal(t, "/music/le_rnb.MP3", d.Assets.Audio["LeRnB"])
}
