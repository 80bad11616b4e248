package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath_UnderChoralmindDir(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "choralmind.log", filepath.Base(path))
	assert.Contains(t, path, ".choralmind")
}

func TestConfigs(t *testing.T) {
	assert.Equal(t, "info", DefaultConfig().Level)
	assert.True(t, DefaultConfig().WriteToStderr)
	assert.Equal(t, "debug", DebugConfig().Level)

	quiet := QuietConfig("warn")
	assert.False(t, quiet.WriteToStderr)
	assert.Equal(t, "warn", quiet.Level)
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: file-only logging in a temp dir
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath})
	require.NoError(t, err)

	// When: a record is logged and the writer is closed
	logger.Info("ingest_started", slog.String("language", "english"))
	cleanup()

	// Then: the file holds a JSON line with the attributes
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"ingest_started"`)
	assert.Contains(t, string(data), `"language":"english"`)
}

func TestSetup_RespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestSetup_NoOutputsDiscards(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info("nowhere") })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	// Given: a 1MB writer that already holds almost 1MB
	logPath := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	big := []byte(strings.Repeat("x", 1024*1024-10) + "\n")
	_, err = w.Write(big)
	require.NoError(t, err)

	// When: another write overflows the limit
	_, err = w.Write([]byte("after rotation\n"))
	require.NoError(t, err)

	// Then: the old content moved to .1 and the new file holds the new line
	_, err = os.Stat(logPath + ".1")
	assert.NoError(t, err)
	current, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "after rotation\n", string(current))
}
