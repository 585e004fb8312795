package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off lowercase", "off", config.LogLevelOff},
		{"off uppercase", "OFF", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error", "error", config.LogLevelError},
		{"info", "Info", config.LogLevelInfo},
		{"debug uppercase", "DEBUG", config.LogLevelDebug},
		{"with whitespace", "  debug  ", config.LogLevelDebug},
		{"invalid returns error", "invalid", config.LogLevelError},
		{"empty returns error", "", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogLevelOff, config.LogLevelError, config.LogLevelInfo, config.LogLevelDebug} {
		assert.Equal(t, l, config.ParseLogLevel(l.String()))
	}
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelInfo, &buf)

	l.Debug("hidden %d", 1)
	l.Info("wallet %s opened", "main")
	l.Error("failed: %v", "boom")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "wallet main opened", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "failed: boom", lines[1]["message"])
	assert.Contains(t, lines[0], "time")
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelError, &buf)

	l.Debug("before")
	l.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, l.Level())
	l.Debug("after")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "after", lines[0]["message"])

	l.SetLevel(config.LogLevelOff)
	l.Error("silenced")
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelDebug, &buf)

	n, err := l.Writer(config.LogLevelDebug).Write([]byte("  from writer \n"))
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "from writer", lines[0]["message"])
}

func TestLogger_Zerolog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := config.NewWriterLogger(config.LogLevelInfo, &buf)

	zl := l.Zerolog()
	zl.Info().Str("method", "POST").Int("status", 200).Msg("request")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "POST", lines[0]["method"])
	assert.InDelta(t, 200, lines[0]["status"], 0)
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "custodian.log")

	l, err := config.NewLogger(config.LogLevelDebug, path, config.WithRotation(1, 2))
	require.NoError(t, err)
	l.Debug("written to %s", "file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewLogger_Disabled(t *testing.T) {
	t.Parallel()

	l, err := config.NewLogger(config.LogLevelOff, filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelOff, l.Level())
	require.NoError(t, l.Close())

	l, err = config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	l.Error("nowhere")
	require.NoError(t, l.Close())
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	l := config.NullLogger()
	l.Debug("x")
	l.Info("x")
	l.Error("x")
	_, err := l.Writer(config.LogLevelError).Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()
	var buf safeBuffer
	l := config.NewWriterLogger(config.LogLevelDebug, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Debug("message %d", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
