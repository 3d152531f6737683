package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "dashboard.log")

	logger, err := New("debug", p)
	require.NoError(t, err)
	logger.Debug("history refresh failed")
	_ = logger.Sync()

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "history refresh failed")
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestNewRespectsLevel(t *testing.T) {
	p := filepath.Join(t.TempDir(), "app.log")

	logger, err := New("warn", p)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "")
	assert.Error(t, err)
}
