package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in, zerolog.InfoLevel))
		})
	}
}

func TestNewJSONFormat(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	log := Component(New(Config{Level: "debug", Format: "json", Out: &buf}), "relay")
	log.Debug().Str("conn_id", "c1").Msg("joined")

	var line map[string]any
	req.NoError(json.Unmarshal(buf.Bytes(), &line))
	req.Equal("relay", line["component"])
	req.Equal("c1", line["conn_id"])
	req.Equal("joined", line["message"])
	req.Equal("debug", line["level"])
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "warn", Format: "json", Out: &buf})
	log.Info().Msg("hidden")

	require.Zero(t, buf.Len())
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer

	log := New(Config{Level: "info", Format: "console", Out: &buf})
	log.Info().Msg("server ready")

	require.Contains(t, buf.String(), "server ready")
}
