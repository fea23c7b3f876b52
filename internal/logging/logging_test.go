package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "healthdesk.log")

	logger, err := New(path, "debug")
	require.NoError(t, err)
	logger.Debug("list fetched", zap.String("entity", "departments"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"list fetched"`)
	assert.Contains(t, string(data), `"entity":"departments"`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthdesk.log")

	logger, err := New(path, "warn")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "x.log"), "loud")
	assert.Error(t, err)
}
