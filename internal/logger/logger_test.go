package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"test", "", zerolog.WarnLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "DEBUG", zerolog.DebugLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.override, func(t *testing.T) {
			assert.Equal(t, tt.want, levelFor(tt.env, tt.override))
		})
	}
}

func TestSetup_ProductionWritesJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	Setup(Options{Env: "production", Out: &buf})

	log.Info().Str("product", "share").Msg("upload stored")
	log.Debug().Msg("hidden")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "upload stored", line["message"])
	assert.Equal(t, "share", line["product"])
	assert.Equal(t, "production", line["env"])
}

func TestSetup_ConsoleWithoutColor(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	noColor := false
	Setup(Options{Env: "development", Out: &buf, Color: &noColor})

	log.Debug().Int("status", 404).Msg("request completed")

	out := buf.String()
	assert.Contains(t, out, "request completed")
	assert.Contains(t, out, "status=404")
	assert.NotContains(t, out, "\033[")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, ansiGreen+"200"+ansiReset, formatValue(true, "200"))
	assert.Equal(t, ansiRed+"503"+ansiReset, formatValue(true, "503"))
	assert.Equal(t, ansiPurple+"GET"+ansiReset, formatValue(true, "GET"))
	assert.Equal(t, "1999", formatValue(true, "1999"))
	assert.Equal(t, "200", formatValue(false, "200"))
}
