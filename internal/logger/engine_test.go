package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"DEBUG", "DEBUG", zerolog.DebugLevel},
		{"INFO", "INFO", zerolog.InfoLevel},
		{"WARNING", "WARNING", zerolog.WarnLevel},
		{"ERROR", "ERROR", zerolog.ErrorLevel},
		{"lowercase", "debug", zerolog.DebugLevel},
		{"unknown falls back to info", "TRACE", zerolog.InfoLevel},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ParseLevel(test.level))
		})
	}
}

func TestEngineLogWritesComponentField(t *testing.T) {
	var buffer bytes.Buffer

	log := NewEngineLog(&buffer, "INFO")
	log.Info("scanner", "scan started", map[string]any{"stages": 7})

	assert.Contains(t, buffer.String(), `"component":"scanner"`)
	assert.Contains(t, buffer.String(), `"stages":7`)
	assert.Contains(t, buffer.String(), `"message":"scan started"`)
}

func TestEngineLogFiltersBelowLevel(t *testing.T) {
	var buffer bytes.Buffer

	log := NewEngineLog(&buffer, "WARNING")
	log.Debug("scanner", "noisy detail", nil)
	log.Info("scanner", "still too low", nil)

	assert.Empty(t, buffer.String())

	log.Warning("scanner", "worth keeping", nil)
	assert.Contains(t, buffer.String(), `"worth keeping"`)
}

func TestEngineLogError(t *testing.T) {
	var buffer bytes.Buffer

	log := NewEngineLog(&buffer, "ERROR")
	log.Error("downgrader", errors.New("patch failed"), map[string]any{"file": "Fallout4.exe"})

	assert.Contains(t, buffer.String(), `"error":"patch failed"`)
	assert.Contains(t, buffer.String(), `"component":"downgrader"`)
	assert.Contains(t, buffer.String(), `"file":"Fallout4.exe"`)
}

func TestNopEngineLogDiscards(t *testing.T) {
	log := NopEngineLog()
	log.Info("scanner", "goes nowhere", nil)
	log.Error("scanner", errors.New("also nowhere"), nil)
}
