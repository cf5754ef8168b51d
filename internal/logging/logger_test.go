package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nfe/internal/config"
	"nfe/internal/logging"
)

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfe.log")
	logger, closeLog, err := logging.New(config.LoggingConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	defer closeLog()

	logger.Debug("index rebuilt", zap.Int("documents", 2))
	require.NoError(t, logging.Sync(logger))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "index rebuilt", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "ts")
	assert.EqualValues(t, 2, entry["documents"])
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfe.log")
	logger, closeLog, err := logging.New(config.LoggingConfig{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)
	defer closeLog()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logging.New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestForTerminalUI_NopWithoutFile(t *testing.T) {
	logger, closeLog, err := logging.ForTerminalUI(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	closeLog()
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNew_CloseReleasesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfe.log")
	logger, closeLog, err := logging.New(config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	logger.Info("before close")
	require.NoError(t, logging.Sync(logger))

	closeLog()
	assert.ErrorIs(t, logging.Sync(logger), os.ErrClosed)
}
