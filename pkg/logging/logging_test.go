package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Output: &buf, Version: "test"})

	logger.Info().Msg("dropped")
	logger.Warn().Str("url", "ws://x").Msg("kept")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "test", line["version"])
	assert.Equal(t, "ws://x", line["url"])
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	logger := New(Config{Output: f})
	logger.Info().Msg("hello")
	assert.FileExists(t, path)
}
