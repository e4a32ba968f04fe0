package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/confmap/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"WARN":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"bogus":    zerolog.InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, logging.ParseLevel(input), "input %q", input)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf)

	logger.Info().Str("source", "ccf-official").Int("records", 42).Msg("loaded records")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded records", entry["message"])
	assert.Equal(t, "ccf-official", entry["source"])
	assert.Equal(t, float64(42), entry["records"])
	assert.NotEmpty(t, entry["time"])
}

func TestSetDefault(t *testing.T) {
	original := *logging.Default()
	defer logging.SetDefault(original)

	var buf bytes.Buffer
	logging.SetDefault(logging.New(&buf))
	logging.Default().Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
}
