// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	logLevelDebug = "debug"
	logLevelInfo  = "info"
	logLevelWarn  = "warn"
	logLevelError = "error"
)

// Log is the global logger instance. It discards output until Init is called
// so that library code and tests can log unconditionally.
var Log = zerolog.Nop()

// Init initializes the global logger with the specified level and output format
func Init(level string, pretty bool) {
	InitWithWriter(os.Stdout, level, pretty)
}

// InitWithWriter initializes the global logger writing to out
func InitWithWriter(out io.Writer, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := out
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05.000",
		}
	}

	zerolog.SetGlobalLevel(parseLogLevel(level))

	Log = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case logLevelDebug:
		return zerolog.DebugLevel
	case logLevelInfo:
		return zerolog.InfoLevel
	case logLevelWarn:
		return zerolog.WarnLevel
	case logLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
