package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationwatch/aggregator/internal/config"
)

func TestNewDefaultsToInfoOnStderr(t *testing.T) {
	log := New(config.LoggingConfig{})
	require.NotNil(t, log)
	assert.False(t, log.Enabled(nil, -4)) // slog.LevelDebug
}

func TestNewDebugEnablesDebugLevel(t *testing.T) {
	log := New(config.LoggingConfig{Level: "debug"})
	assert.True(t, log.Enabled(nil, -4))
}

func TestNewWithFileUsesRotatingWriter(t *testing.T) {
	log := New(config.LoggingConfig{File: t.TempDir() + "/aggregator.log"})
	require.NotNil(t, log)
}
