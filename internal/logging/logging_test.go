package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	logger, err := New("info", false)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("session created", zap.String("session", "4821"))
	_ = logger.Sync()

	dir, err := StateDir()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "studyai.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "session created", entry["msg"])
	assert.Equal(t, "4821", entry["session"])
	assert.Equal(t, "studyai", entry["logger"])
}

func TestVerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, err := NewAt(path, "warn", true)
	require.NoError(t, err)
	logger.Debug("visible")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewAt(filepath.Join(t.TempDir(), "x.log"), "loud", false)
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}
