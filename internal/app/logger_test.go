package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	logger := newLogger("info", "json", out)
	logger.Info("hello", "key", "val")

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "val", record["key"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	logger := newLogger("error", "text", out)

	logger.Info("quiet")
	assert.Empty(t, out.String())

	logger.Error("loud")
	assert.Contains(t, out.String(), "loud")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	logger := newLogger("shouting", "text", out)

	logger.Debug("hidden")
	assert.Empty(t, out.String())

	logger.Info("shown")
	assert.Contains(t, out.String(), "shown")
}
