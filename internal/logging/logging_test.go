package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")

	lvl, err := Level("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = Level("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = Level("loud")
	assert.Error(t, err)

	t.Setenv(EnvLevel, "error")
	lvl, err = Level("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, lvl)
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	t.Setenv(EnvLevel, "")
	file := filepath.Join(t.TempDir(), "servant.log")
	var console bytes.Buffer

	log, err := New(Config{Level: "info", File: file, MaxSizeMB: 1, Console: &console})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("spawned worker")
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(console.Bytes()), &line))
	assert.Equal(t, "spawned worker", line["msg"])
	assert.Equal(t, "info", line["level"])

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spawned worker")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
