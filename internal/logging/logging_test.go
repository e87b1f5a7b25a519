package logging

import (
	"testing"

	"github.com/ivlev/bronify/internal/system"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventCarriesDeviceTags(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := WithDevice(zap.New(core), system.Device{Kind: "Desktop", OS: "linux", Arch: "amd64", CPUs: 8})

	Event(logger, "share_success", zap.String("method", "download"))

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, "EVENT: share_success", entry.Message)

	fields := entry.ContextMap()
	require.Equal(t, "share_success", fields["event"])
	require.Equal(t, "download", fields["method"])
	require.Equal(t, "linux", fields["os"])
	require.Equal(t, int64(8), fields["cpus"])
}

func TestEventNilLogger(t *testing.T) {
	require.NotPanics(t, func() { Event(nil, "noop") })
}

func TestNewJSON(t *testing.T) {
	logger, err := New(Options{JSON: true, OutputPaths: []string{t.TempDir() + "/bronify.log"}})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
}
