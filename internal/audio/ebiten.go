package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	eaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// EbitenBackend plays tracks through ebiten's audio context. Only one
// context may exist per process; it is created lazily on first use.
type EbitenBackend struct {
	sampleRate int
	unlockWait time.Duration
	client     *http.Client

	once sync.Once
	actx *eaudio.Context
}

func NewEbitenBackend(sampleRate int, unlockWait time.Duration) *EbitenBackend {
	return &EbitenBackend{
		sampleRate: sampleRate,
		unlockWait: unlockWait,
		client:     &http.Client{},
	}
}

func (b *EbitenBackend) context() *eaudio.Context {
	b.once.Do(func() {
		b.actx = eaudio.CurrentContext()
		if b.actx == nil {
			b.actx = eaudio.NewContext(b.sampleRate)
		}
	})
	return b.actx
}

// Unlock plays 100ms of silence and waits for the device to report ready.
func (b *EbitenBackend) Unlock(ctx context.Context) error {
	actx := b.context()
	// 16 бит, стерео: 4 байта на кадр
	silence := make([]byte, b.sampleRate/10*4)
	p := actx.NewPlayerFromBytes(silence)
	defer p.Close()
	p.Play()

	deadline := time.NewTimer(b.unlockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !actx.IsReady() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("audio device not ready")
		case <-ticker.C:
		}
	}
	return nil
}

type pcmStream interface {
	io.ReadSeeker
	Length() int64
}

func (b *EbitenBackend) Load(ctx context.Context, url string) (Track, error) {
	data, err := b.read(ctx, url)
	if err != nil {
		return nil, err
	}

	var stream pcmStream
	src := bytes.NewReader(data)
	switch ext := strings.ToLower(filepath.Ext(FileName(url))); ext {
	case ".mp3":
		stream, err = mp3.DecodeWithSampleRate(b.sampleRate, src)
	case ".wav":
		stream, err = wav.DecodeWithSampleRate(b.sampleRate, src)
	case ".ogg":
		stream, err = vorbis.DecodeWithSampleRate(b.sampleRate, src)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return &ebitenTrack{actx: b.context(), stream: stream}, nil
}

func (b *EbitenBackend) read(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return os.ReadFile(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", FileName(url), resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ebitenTrack recreates its player when the loop mode changes: ebiten wraps
// looping streams in an InfiniteLoop reader at player construction.
type ebitenTrack struct {
	mu          sync.Mutex
	actx        *eaudio.Context
	stream      pcmStream
	player      *eaudio.Player
	loop        bool
	playerLoops bool
	volume      float64
}

func (t *ebitenTrack) ensurePlayer() error {
	if t.player != nil && t.playerLoops == t.loop {
		return nil
	}
	if t.player != nil {
		t.player.Close()
		t.player = nil
	}
	if _, err := t.stream.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var src io.Reader = t.stream
	if t.loop {
		src = eaudio.NewInfiniteLoop(t.stream, t.stream.Length())
	}
	p, err := t.actx.NewPlayer(src)
	if err != nil {
		return err
	}
	p.SetVolume(t.volume)
	t.player = p
	t.playerLoops = t.loop
	return nil
}

func (t *ebitenTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePlayer(); err != nil {
		return err
	}
	t.player.Play()
	return nil
}

func (t *ebitenTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player != nil {
		t.player.Pause()
	}
}

func (t *ebitenTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
	if t.player != nil {
		t.player.SetVolume(v)
	}
}

func (t *ebitenTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *ebitenTrack) Rewind() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player == nil {
		return nil
	}
	return t.player.SetPosition(0)
}

func (t *ebitenTrack) SetLoop(loop bool) {
	t.mu.Lock()
	t.loop = loop
	t.mu.Unlock()
}

func (t *ebitenTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player != nil && t.player.IsPlaying()
}

func (t *ebitenTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player == nil {
		return nil
	}
	err := t.player.Close()
	t.player = nil
	return err
}
