package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.level))
		})
	}
}

func TestInitWithWriter_JSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", false)

	Log.Info().Str("clip_id", "abc").Msg("clip appended")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["clip_id"])
	assert.Equal(t, "clip appended", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInitWithWriter_RespectsLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", false)

	Log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
