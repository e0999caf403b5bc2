package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{"": zap.InfoLevel, "DEBUG": zap.DebugLevel, "warning": zap.WarnLevel, "error": zap.ErrorLevel} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", JSON: true, Console: &buf})
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", zap.String("k", "v"))
	_ = l.Sync()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataagent.log")
	var buf bytes.Buffer
	l, err := New(Options{File: path, Console: &buf})
	require.NoError(t, err)
	l.Named("gateway").Info("analysis complete")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"logger":"gateway"`)
	assert.Contains(t, string(b), "analysis complete")
}
