// Package deck describes a story deck: the ordered slide list, the assets it
// references and the interactive blocks of quiz, result, game and video
// slides. A deck is read once per session and never mutated afterwards.
package deck

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Kind string

const (
	KindStory  Kind = "story"
	KindQuiz   Kind = "quiz"
	KindResult Kind = "result"
	KindGame   Kind = "game"
	KindVideo  Kind = "video"
	KindShare  Kind = "share"
)

// DefaultChoiceKey is the session key the persona quiz writes to.
const DefaultChoiceKey = "lebronChoice"

type Deck struct {
	Version  string  `yaml:"version"`
	Title    string  `yaml:"title"`
	Interval int     `yaml:"interval,omitempty"` // ms, для слайдов без duration
	Assets   Assets  `yaml:"assets"`
	Slides   []Slide `yaml:"slides"`
}

// Assets maps symbolic keys to file paths or URLs.
type Assets struct {
	Audio  map[string]string `yaml:"audio,omitempty"`
	Images map[string]string `yaml:"images,omitempty"`
	Videos map[string]string `yaml:"videos,omitempty"`
}

type Slide struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name,omitempty"`
	Kind        Kind     `yaml:"kind,omitempty"`
	Duration    int      `yaml:"duration,omitempty"` // ms
	Track       string   `yaml:"track,omitempty"`
	Volume      float64  `yaml:"volume,omitempty"`
	Loop        bool     `yaml:"loop,omitempty"`
	FadeIn      int      `yaml:"fade_in,omitempty"` // ms
	StartPaused bool     `yaml:"start_paused,omitempty"`
	Body        string   `yaml:"body,omitempty"`
	Visual      string   `yaml:"visual,omitempty"`
	Quiz        *Quiz    `yaml:"quiz,omitempty"`
	Results     *Results `yaml:"results,omitempty"`
	Game        *Game    `yaml:"game,omitempty"`
	Video       *Video   `yaml:"video,omitempty"`
	// FallbackMs resumes an interactive slide after this wait when nobody answers.
	FallbackMs int `yaml:"fallback_ms,omitempty"`
}

// Quiz is either a persona quiz (options carry a result id that is written to
// the session) or trivia (Correct is set and the answer is only revealed).
type Quiz struct {
	Prompt   string   `yaml:"prompt"`
	Options  []Option `yaml:"options"`
	Correct  *int     `yaml:"correct,omitempty"`
	Key      string   `yaml:"key,omitempty"`
	ResumeMs int      `yaml:"resume_ms,omitempty"`
	Sound    string   `yaml:"sound,omitempty"`
}

type Option struct {
	Text   string `yaml:"text"`
	Detail string `yaml:"detail,omitempty"`
	Result string `yaml:"result,omitempty"`
	// Exit ends the experience instead of recording a choice.
	Exit bool `yaml:"exit,omitempty"`
}

func (q *Quiz) IsTrivia() bool { return q.Correct != nil }

func (q *Quiz) SessionKey() string {
	if q.Key != "" {
		return q.Key
	}
	return DefaultChoiceKey
}

// Results selects the slide content by the choice stored in the session.
type Results struct {
	Key     string            `yaml:"key,omitempty"`
	Default string            `yaml:"default"`
	Tracks  map[string]string `yaml:"tracks"`
	Bodies  map[string]string `yaml:"bodies,omitempty"`
}

func (r *Results) SessionKey() string {
	if r.Key != "" {
		return r.Key
	}
	return DefaultChoiceKey
}

type Game struct {
	Seconds  int      `yaml:"seconds"`
	Players  []string `yaml:"players"`
	Favorite int      `yaml:"favorite,omitempty"`
	ResumeMs int      `yaml:"resume_ms,omitempty"`
}

type Video struct {
	Asset     string `yaml:"asset"`
	LengthMs  int    `yaml:"length_ms"`
	StopAudio bool   `yaml:"stop_audio,omitempty"`
}

func (s Slide) Title() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func (s Slide) EffectiveKind() Kind {
	if s.Kind == "" {
		return KindStory
	}
	return s.Kind
}

// IsInteractive reports whether the slide pauses the countdown waiting for
// the viewer.
func (s Slide) IsInteractive() bool {
	switch s.EffectiveKind() {
	case KindQuiz, KindGame, KindVideo:
		return true
	}
	return false
}

func Ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// SlideDuration returns the nominal slide duration or fallback when unset.
func (d *Deck) SlideDuration(i int, fallback time.Duration) time.Duration {
	if ms := d.Slides[i].Duration; ms > 0 {
		return Ms(ms)
	}
	if d.Interval > 0 {
		return Ms(d.Interval)
	}
	return fallback
}

// Resolve turns an asset reference into a path or URL. References are asset
// keys or literal locations; relative paths are taken against root.
func (d *Deck) Resolve(root, ref string) string {
	if ref == "" {
		return ""
	}
	loc := ref
	if v, ok := d.lookup(ref); ok {
		loc = v
	}
	if IsURL(loc) || filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(root, loc)
}

func (d *Deck) lookup(key string) (string, bool) {
	for _, m := range []map[string]string{d.Assets.Audio, d.Assets.Images, d.Assets.Videos} {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return "", false
}

func (d *Deck) isKnown(ref string) bool {
	if _, ok := d.lookup(ref); ok {
		return true
	}
	// литеральный путь или URL
	return strings.ContainsAny(ref, "/.") || IsURL(ref)
}

func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
