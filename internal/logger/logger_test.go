package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestNew_WritesJSONWithFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	l, err := New(Config{Level: "info", OutputPaths: []string{out}})
	require.NoError(t, err)

	l.With(Component("runner")).Info("topic started", String("topic", "Go generics"))
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"component":"runner"`)
	assert.Contains(t, text, `"topic":"Go generics"`)
	assert.False(t, strings.Contains(text, "hidden"), "debug entry should be filtered at info level")
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.With(Int("n", 1)).Error("ignored")
	assert.NoError(t, l.Sync())
}
