package logger

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// EngineLog is the structured log for engine internals. It is separate
// from Logger, which carries user-facing command output.
type EngineLog struct {
	logger zerolog.Logger
}

func NewEngineLog(writer io.Writer, level string) *EngineLog {
	log := zerolog.New(writer).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &EngineLog{logger: log}
}

// NopEngineLog discards everything. Used where no log destination is wired.
func NopEngineLog() *EngineLog {
	return &EngineLog{logger: zerolog.Nop()}
}

// EngineLogFor builds the engine log for one command run. Debug runs get
// console output at DEBUG; normal runs keep the configured log_level but
// never chattier than WARNING, so diagnostics stay off the command output.
func EngineLogFor(errOut io.Writer, level string, debug bool) *EngineLog {
	if debug {
		console := zerolog.ConsoleWriter{Out: errOut}
		return &EngineLog{logger: zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Logger()}
	}

	parsed := ParseLevel(level)
	if parsed < zerolog.WarnLevel {
		parsed = zerolog.WarnLevel
	}
	return &EngineLog{logger: zerolog.New(errOut).Level(parsed).With().Timestamp().Logger()}
}

// ParseLevel maps the log_level setting to a zerolog level. Unrecognized
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (e *EngineLog) Debug(component string, message string, fields map[string]any) {
	event := e.logger.Debug().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (e *EngineLog) Info(component string, message string, fields map[string]any) {
	event := e.logger.Info().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (e *EngineLog) Warning(component string, message string, fields map[string]any) {
	event := e.logger.Warn().Str("component", component)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (e *EngineLog) Error(component string, err error, fields map[string]any) {
	event := e.logger.Error().Str("component", component).Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg("operation failed")
}
