package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestNew_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Out: &buf})

	l.Named("pool").Info().Str("producer", "p1").Msg("published")
	l.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "published", line["message"])
	assert.Equal(t, "pool", line["component"])
	assert.Equal(t, "p1", line["producer"])
}

func TestNew_ConsoleInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Env: "development", Level: "debug", Out: &buf}).Debug().Msg("staged")

	assert.Contains(t, buf.String(), "staged")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Named("x").Error().Msg("dropped") })
}
