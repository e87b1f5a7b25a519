package config

import (
	"fmt"
	"image/color"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DeckPath  string
	AssetsDir string
	OutputDir string

	// Экспорт карточки (формат stories)
	Width      int
	Height     int
	Background string
	ShareURL   string
	ShareAddr  string
	ShareCmd   []string
	// Обрезать ровные поля вокруг содержимого перед вписыванием
	TrimMargins bool

	// Интервал по умолчанию, если у слайда не указана длительность
	DefaultInterval time.Duration

	Audio AudioConfig

	Headless            bool
	Mute                bool
	InteractiveFallback time.Duration

	JournalPath string
	Verbose     bool
	JSONLogs    bool
	Workers     int
}

type AudioConfig struct {
	Volume        float64
	FadeIn        time.Duration
	FadeInSteps   int
	SwitchFadeOut time.Duration
	StopFadeOut   time.Duration
	FadeOutSteps  int
	UnlockWait    time.Duration
	SampleRate    int
}

func Default() *Config {
	return &Config{
		DeckPath:        "",
		AssetsDir:       "assets",
		OutputDir:       "output",
		Width:           1080,
		Height:          1920,
		Background:      "#1a1a1a",
		DefaultInterval: 25 * time.Second,
		Audio: AudioConfig{
			Volume:        0.5,
			FadeIn:        time.Second,
			FadeInSteps:   20,
			SwitchFadeOut: 300 * time.Millisecond,
			StopFadeOut:   200 * time.Millisecond,
			FadeOutSteps:  10,
			UnlockWait:    500 * time.Millisecond,
			SampleRate:    44100,
		},
		Workers: runtime.NumCPU(),
	}
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid export size %dx%d", c.Width, c.Height)
	}
	if _, err := ParseHexColor(c.Background); err != nil {
		return err
	}
	if c.DefaultInterval <= 0 {
		return fmt.Errorf("default interval must be positive, got %s", c.DefaultInterval)
	}
	a := c.Audio
	if a.Volume < 0 || a.Volume > 1 {
		return fmt.Errorf("audio volume %.2f out of range [0,1]", a.Volume)
	}
	if a.FadeInSteps <= 0 || a.FadeOutSteps <= 0 {
		return fmt.Errorf("fade steps must be positive")
	}
	if a.FadeIn < 0 || a.SwitchFadeOut < 0 || a.StopFadeOut < 0 {
		return fmt.Errorf("fade durations must not be negative")
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", a.SampleRate)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
