package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	t.Parallel()

	t.Run("debug level passes debug records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		newLogger("debug", "text", &buf).Debug("visible")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("default level suppresses debug records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := newLogger("info", "text", &buf)
		logger.Debug("hidden")
		assert.Empty(t, buf.String())
		logger.Info("visible")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := newLogger("chatty", "text", &buf)
		logger.Debug("hidden")
		assert.Empty(t, buf.String())
		logger.Warn("visible")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestNewLoggerFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newLogger("info", "json", &buf).Info("hello", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "value", record["key"])
}
