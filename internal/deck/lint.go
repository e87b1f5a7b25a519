package deck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/bronify/internal/system"
)

// Issue is a lint finding for one slide.
type Issue struct {
	Slide   int
	ID      string
	Track   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("#%d %s: %s (%s)", i.Slide+1, i.ID, i.Message, i.Track)
}

var (
	defaultProbe = system.GetAudioDuration
	probe        = defaultProbe
)

// Lint probes every local track referenced by the deck. It reports missing
// files and tracks that end before their slide without looping. Slides
// without a duration last fallback, as in the player. Remote tracks are
// skipped.
func Lint(ctx context.Context, d *Deck, root string, fallback time.Duration, workers int) ([]Issue, error) {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var (
		mu     sync.Mutex
		issues []Issue
	)
	report := func(i Issue) {
		mu.Lock()
		issues = append(issues, i)
		mu.Unlock()
	}

	for idx, s := range d.Slides {
		for _, ref := range slideTracks(s) {
			path := d.Resolve(root, ref)
			if IsURL(path) {
				continue
			}
			dur := d.SlideDuration(idx, fallback)
			// трек результата играет с тем же флагом, что и трек слайда
			loop := s.Loop
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := os.Stat(path); err != nil {
					if errors.Is(err, os.ErrNotExist) {
						report(Issue{Slide: idx, ID: s.ID, Track: path, Message: "file not found"})
						return nil
					}
					return err
				}
				length, err := probe(path)
				if err != nil {
					report(Issue{Slide: idx, ID: s.ID, Track: path, Message: err.Error()})
					return nil
				}
				if length < dur && !loop {
					report(Issue{Slide: idx, ID: s.ID, Track: path,
						Message: fmt.Sprintf("track lasts %s, slide %s, not looped", length.Round(time.Millisecond), dur)})
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Slide != issues[j].Slide {
			return issues[i].Slide < issues[j].Slide
		}
		return issues[i].Track < issues[j].Track
	})
	return issues, nil
}

func slideTracks(s Slide) []string {
	var refs []string
	if s.Track != "" {
		refs = append(refs, s.Track)
	}
	if s.Results != nil {
		keys := make([]string, 0, len(s.Results.Tracks))
		for k := range s.Results.Tracks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			refs = append(refs, s.Results.Tracks[k])
		}
	}
	return refs
}

// BindAudio points audio asset keys at matching files found on disk. A file
// matches a key when their normalized names are equal ("Bron Ballad.mp3"
// matches BronBallad). Returns the number of keys rebound.
func BindAudio(d *Deck, files []string) int {
	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[normalize(strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)))] = f
	}
	n := 0
	for key := range d.Assets.Audio {
		if f, ok := byName[normalize(key)]; ok {
			d.Assets.Audio[key] = f
			n++
		}
	}
	return n
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
