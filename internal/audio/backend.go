// Package audio coordinates background tracks: at most one track is current,
// switching tracks fades the old one out while the new one fades in, and
// loaded tracks are cached for the rest of the session.
package audio

import (
	"context"
	"sync"
)

// Track is one loaded audio asset as the platform sees it.
type Track interface {
	Play() error
	Pause()
	SetVolume(v float64)
	Volume() float64
	Rewind() error
	SetLoop(loop bool)
	IsPlaying() bool
	Close() error
}

// Backend loads tracks and performs the one-time unlock gesture.
type Backend interface {
	// Unlock plays a near-silent clip so that later playback is allowed.
	Unlock(ctx context.Context) error
	// Load returns once enough data is buffered to start playback.
	Load(ctx context.Context, url string) (Track, error)
}

// NopBackend accepts everything and produces no sound (--mute).
type NopBackend struct{}

func (NopBackend) Unlock(context.Context) error { return nil }

func (NopBackend) Load(context.Context, string) (Track, error) {
	return &nopTrack{}, nil
}

type nopTrack struct {
	mu      sync.Mutex
	volume  float64
	playing bool
}

func (t *nopTrack) Play() error {
	t.mu.Lock()
	t.playing = true
	t.mu.Unlock()
	return nil
}

func (t *nopTrack) Pause() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

func (t *nopTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = v
	t.mu.Unlock()
}

func (t *nopTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *nopTrack) Rewind() error { return nil }
func (t *nopTrack) SetLoop(bool)  {}

func (t *nopTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *nopTrack) Close() error { return nil }
