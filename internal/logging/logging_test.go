package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.in))
		})
	}
}

func TestNew_TextConsoleRespectsLevel(t *testing.T) {
	var console bytes.Buffer
	logger := New(&console, nil, Options{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("using local storage fallback", "backend", "local_file")

	out := console.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "backend=local_file")
}

func TestNew_JSONConsole(t *testing.T) {
	var console bytes.Buffer
	logger := New(&console, nil, Options{Format: "json"})

	logger.Info("wish added", "id", "w1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(console.Bytes(), &rec))
	assert.Equal(t, "wish added", rec["msg"])
	assert.Equal(t, "w1", rec["id"])
}

func TestNew_FansOutToFile(t *testing.T) {
	var console, file bytes.Buffer
	logger := New(&console, &file, Options{Level: "debug"}).With("component", "selector")

	logger.Debug("remote store not reachable, retrying", "attempt", 1)

	assert.Contains(t, console.String(), "component=selector")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "selector", rec["component"])
	assert.Equal(t, float64(1), rec["attempt"])
}

func TestInit_WritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "wunschliste.log")
	logger, closeLog := Init(Options{Level: "error", File: path})

	logger.Error("no usable storage backend")
	slog.Error("via default logger")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "no usable storage backend")
	assert.Contains(t, lines[1], "via default logger")
}
