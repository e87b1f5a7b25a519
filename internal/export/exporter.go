package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/config"
	"github.com/ivlev/bronify/internal/logging"
	"github.com/ivlev/bronify/internal/system"
	"github.com/ivlev/bronify/internal/visual"
)

var (
	// ErrCancelled means the viewer dismissed the share target. It is a
	// silent outcome: nothing is logged as an error.
	ErrCancelled = errors.New("share cancelled")
	ErrBusy      = errors.New("share already in progress")
)

// Chrome is the player overlay hidden while capturing.
type Chrome interface {
	Hide()
	Show()
}

type Card struct {
	Name  string
	PNG   []byte
	Title string
	Text  string
}

// Sharer delivers a card somewhere and returns where it went.
type Sharer interface {
	Method() string
	CanShare() bool
	Share(ctx context.Context, card Card) (string, error)
}

type Result struct {
	Method   string
	Location string
}

type Exporter struct {
	width, height int
	bg            color.RGBA
	shareURL      string
	dpi           int
	content       *ContentFinder

	sharer   Sharer
	fallback Sharer
	chrome   Chrome
	log      *zap.Logger

	mu   sync.Mutex
	busy bool
}

type Option func(*Exporter)

// WithSharer sets the preferred share target.
func WithSharer(s Sharer) Option { return func(e *Exporter) { e.sharer = s } }

func WithChrome(c Chrome) Option { return func(e *Exporter) { e.chrome = c } }

func WithLogger(l *zap.Logger) Option { return func(e *Exporter) { e.log = l } }

func New(cfg *config.Config, opts ...Option) (*Exporter, error) {
	bg, err := config.ParseHexColor(cfg.Background)
	if err != nil {
		return nil, err
	}
	e := &Exporter{
		width:    cfg.Width,
		height:   cfg.Height,
		bg:       bg,
		shareURL: cfg.ShareURL,
		dpi:      144,
		fallback: &DownloadSharer{Dir: cfg.OutputDir},
		log:      zap.NewNop(),
	}
	if cfg.TrimMargins {
		e.content = NewContentFinder()
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.Named("export")
	return e, nil
}

// CardURL is the public address of a card when a share server is configured.
func (e *Exporter) CardURL(name string) string {
	if e.shareURL == "" {
		return ""
	}
	u, err := url.JoinPath(e.shareURL, "cards", name+".png")
	if err != nil {
		return ""
	}
	return u
}

// Render captures page of src into an encoded PNG card.
func (e *Exporter) Render(src visual.Source, page int, name string) ([]byte, error) {
	img, err := src.RenderPage(page, e.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	if e.content != nil {
		img = e.content.Crop(img)
	}

	canvas := Letterbox(img, e.width, e.height, e.bg)
	defer system.PutImage(canvas)

	if link := e.CardURL(name); link != "" {
		if err := StampQR(canvas, Fit(img.Bounds(), e.width, e.height), link, e.width/6); err != nil {
			e.log.Warn("qr code skipped", zap.Error(err))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// CaptureAndShare renders the card with the overlay hidden, then shares it
// through the preferred target or falls back to a download. The overlay is
// restored on every path.
func (e *Exporter) CaptureAndShare(ctx context.Context, src visual.Source, page int, name string) (Result, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return Result{}, ErrBusy
	}
	e.busy = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	log := e.log.With(zap.String("card", name))
	log.Info("starting capture")

	shown := false
	show := func() {
		if e.chrome != nil && !shown {
			shown = true
			e.chrome.Show()
		}
	}
	if e.chrome != nil {
		e.chrome.Hide()
	}
	defer show()

	data, err := e.Render(src, page, name)
	show()
	if err != nil {
		log.Error("share failed", zap.Error(err))
		return Result{}, err
	}

	card := Card{
		Name:  name,
		PNG:   data,
		Title: "Bronify Wrapped 2025",
		Text:  "Check out my Bronify Wrapped!",
	}

	target := e.fallback
	if e.sharer != nil && e.sharer.CanShare() {
		target = e.sharer
	} else {
		log.Info("falling back to download")
	}

	loc, err := target.Share(ctx, card)
	switch {
	case errors.Is(err, ErrCancelled):
		log.Debug("share dismissed")
		return Result{}, ErrCancelled
	case err != nil:
		log.Error("share failed", zap.String("method", target.Method()), zap.Error(err))
		return Result{}, err
	}

	logging.Event(log, "share_success", zap.String("method", target.Method()), zap.String("location", loc))
	return Result{Method: target.Method(), Location: loc}, nil
}
