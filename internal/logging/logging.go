// Package logging builds the zap loggers used across bronify. Every logger is
// tagged with the device it runs on, so lines from different machines can be
// told apart when logs are collected in one place.
package logging

import (
	"fmt"

	"github.com/ivlev/bronify/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options control logger construction.
type Options struct {
	Verbose bool
	JSON    bool
	// OutputPaths defaults to stderr. The terminal player redirects logs to a
	// file so they do not tear the UI.
	OutputPaths []string
}

// New builds a logger tagged with device fields.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.JSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
		cfg.ErrorOutputPaths = opts.OutputPaths
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return WithDevice(logger, system.DeviceInfo()), nil
}

// WithDevice attaches device tags to every entry of the logger.
func WithDevice(logger *zap.Logger, d system.Device) *zap.Logger {
	return logger.With(
		zap.String("device", d.Kind),
		zap.String("os", d.OS),
		zap.String("platform", d.Platform),
		zap.String("arch", d.Arch),
		zap.Int("cpus", d.CPUs),
	)
}

// Event logs an analytics event (story started, share succeeded, ...).
func Event(logger *zap.Logger, name string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	logger.Info("EVENT: "+name, append([]zap.Field{zap.String("event", name)}, fields...)...)
}
