package deck

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid deck")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks the structural rules of a deck. All violations are joined.
func (d *Deck) Validate() error {
	var errs []error
	if len(d.Slides) == 0 {
		errs = append(errs, invalid("no slides"))
	}
	if d.Interval < 0 {
		errs = append(errs, invalid("negative interval %d", d.Interval))
	}

	seen := make(map[string]int, len(d.Slides))
	for i, s := range d.Slides {
		if s.ID == "" {
			errs = append(errs, invalid("slide %d: missing id", i))
		} else if prev, ok := seen[s.ID]; ok {
			errs = append(errs, invalid("slide %d: id %q already used by slide %d", i, s.ID, prev))
		} else {
			seen[s.ID] = i
		}
		if s.Duration < 0 || s.FadeIn < 0 || s.FallbackMs < 0 {
			errs = append(errs, invalid("slide %q: negative timing", s.ID))
		}
		if s.Volume < 0 || s.Volume > 1 {
			errs = append(errs, invalid("slide %q: volume %.2f out of range", s.ID, s.Volume))
		}
		for _, ref := range []string{s.Track, s.Visual} {
			if ref != "" && !d.isKnown(ref) {
				errs = append(errs, invalid("slide %q: unknown asset %q", s.ID, ref))
			}
		}
		errs = append(errs, d.validateKind(i, s)...)
	}
	return errors.Join(errs...)
}

func (d *Deck) validateKind(i int, s Slide) []error {
	var errs []error
	switch s.EffectiveKind() {
	case KindStory:
	case KindQuiz:
		q := s.Quiz
		if q == nil || len(q.Options) == 0 {
			return []error{invalid("slide %q: quiz without options", s.ID)}
		}
		if q.IsTrivia() {
			if *q.Correct < 0 || *q.Correct >= len(q.Options) {
				errs = append(errs, invalid("slide %q: correct option %d out of range", s.ID, *q.Correct))
			}
			break
		}
		for j, o := range q.Options {
			if !o.Exit && o.Result == "" {
				errs = append(errs, invalid("slide %q: option %d has no result", s.ID, j))
			}
		}
	case KindResult:
		r := s.Results
		if r == nil || r.Default == "" {
			return []error{invalid("slide %q: result slide needs a default", s.ID)}
		}
		for result, ref := range r.Tracks {
			if !d.isKnown(ref) {
				errs = append(errs, invalid("slide %q: unknown track %q for %q", s.ID, ref, result))
			}
		}
	case KindGame:
		g := s.Game
		if g == nil || g.Seconds <= 0 || len(g.Players) == 0 {
			return []error{invalid("slide %q: game needs seconds and players", s.ID)}
		}
		if g.Favorite < 0 || g.Favorite >= len(g.Players) {
			errs = append(errs, invalid("slide %q: favorite player %d out of range", s.ID, g.Favorite))
		}
	case KindVideo:
		v := s.Video
		if v == nil || v.LengthMs <= 0 {
			return []error{invalid("slide %q: video needs length_ms", s.ID)}
		}
		if v.Asset != "" && !d.isKnown(v.Asset) {
			errs = append(errs, invalid("slide %q: unknown video %q", s.ID, v.Asset))
		}
	case KindShare:
		if i != len(d.Slides)-1 {
			errs = append(errs, invalid("slide %q: share slide must be last", s.ID))
		}
	default:
		errs = append(errs, invalid("slide %q: unknown kind %q", s.ID, s.Kind))
	}
	return errs
}
