package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	require.NotNil(t, Log)
	assert.NotPanics(t, func() {
		Info("noop", zap.String("k", "v"))
		Debug("noop")
	})
}

func TestInitWithFileConfig(t *testing.T) {
	prev := Log
	t.Cleanup(func() {
		Log = prev
		Sugar = prev.Sugar()
	})

	path := filepath.Join(t.TempDir(), "oxy.log")
	require.NoError(t, InitWithFileConfig("debug", DefaultFileConfig(path), false))

	Debug("hello from test", zap.Int("n", 3))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), "DEBUG")
}
