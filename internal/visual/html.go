package visual

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// HTMLSource captures a single HTML slide in headless Chrome. The page is
// laid out in a phone-sized viewport and captured at a device scale so that
// the screenshot matches the story card size.
type HTMLSource struct {
	target  string
	Width   int
	Height  int
	Scale   float64
	Timeout time.Duration
	// Bin overrides the Chrome binary; empty means the launcher default.
	Bin string
}

func NewHTMLSource(location string) *HTMLSource {
	return &HTMLSource{
		target:  location,
		Width:   540,
		Height:  960,
		Scale:   2,
		Timeout: 30 * time.Second,
	}
}

func (h *HTMLSource) PageCount() int { return 1 }

func (h *HTMLSource) GetPageDimensions(index int) (float64, float64, error) {
	if index != 0 {
		return 0, 0, fmt.Errorf("page %d out of range [0,1)", index)
	}
	return float64(h.Width) * h.Scale, float64(h.Height) * h.Scale, nil
}

// URL is the address Chrome navigates to.
func (h *HTMLSource) URL() (string, error) {
	if u, err := url.Parse(h.target); err == nil && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "file") {
		return h.target, nil
	}
	abs, err := filepath.Abs(h.target)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (h *HTMLSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("page %d out of range [0,1)", index)
	}
	target, err := h.URL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
	defer cancel()

	l := launcher.New().Headless(true)
	if h.Bin != "" {
		l = l.Bin(h.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             h.Width,
		Height:            h.Height,
		DeviceScaleFactor: h.Scale,
		Mobile:            true,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (h *HTMLSource) Close() error { return nil }
