package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockledger.log")

	log, err := New(&Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)
	log.Info("filtered out")
	log.Warn("reorder point reached")
	require.NoError(t, Sync(log))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"reorder point reached"`)
	assert.Contains(t, lines[0], `"level":"warn"`)
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	log, err := New(&Config{Level: "info", Format: "console", Output: "stderr"}, core)
	require.NoError(t, err)
	log.Info("mirrored")

	assert.Equal(t, 1, recorded.FilterMessage("mirrored").Len())
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
