package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warn":    WARN,
		"warning": WARN,
		"error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: WARN, Output: &buf})

	log.Debug("hidden %d", 1)
	log.Info("hidden %d", 2)
	log.Warn("shown %d", 3)
	log.Error("shown %d", 4)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown 3")
	require.Contains(t, out, "shown 4")
}

func TestLoggerJSONWithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: DEBUG, Output: &buf, JSON: true}).With("remote", "127.0.0.1:5000")

	log.Info("request %s", "ApiVersions")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "request ApiVersions", entry["message"])
	require.Equal(t, "127.0.0.1:5000", entry["remote"])
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	require.False(t, log.Enabled(ERROR))
	log.Error("nothing %s", "here")
}
