package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used by the library.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

type writerLogger struct {
	zl zerolog.Logger
}

func (l writerLogger) write(event *zerolog.Event, msg string, obj any) {
	switch v := obj.(type) {
	case nil:
	case map[string]any:
		event = event.Fields(v)
	case error:
		event = event.Err(v)
	default:
		event = event.Interface("obj", v)
	}
	event.Msg(msg)
}

// Output formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to w in the named format.
func New(w io.Writer, format string) (Logger, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		return NewWriterLogger(w), nil
	case FormatJSON:
		return NewJSONLogger(w), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// NewWriterLogger builds a logger that writes human-readable lines to an io.Writer.
func NewWriterLogger(w io.Writer) Logger {
	if w == nil {
		w = io.Discard
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return writerLogger{zl: zerolog.New(output).With().Timestamp().Logger()}
}

// NewJSONLogger builds a logger that writes one JSON object per line.
func NewJSONLogger(w io.Writer) Logger {
	if w == nil {
		w = io.Discard
	}
	return writerLogger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func (l writerLogger) Info(msg string, obj any)  { l.write(l.zl.Info(), msg, obj) }
func (l writerLogger) Warn(msg string, obj any)  { l.write(l.zl.Warn(), msg, obj) }
func (l writerLogger) Debug(msg string, obj any) { l.write(l.zl.Debug(), msg, obj) }
func (l writerLogger) Error(msg string, obj any) { l.write(l.zl.Error(), msg, obj) }

// Debug writes a debug log when enabled and logger is non-nil.
func Debug(enabled bool, logger Logger, msg string, obj any) {
	if !enabled || logger == nil {
		return
	}
	logger.Debug(msg, obj)
}

// Warn writes a warning log when logger is non-nil.
func Warn(logger Logger, msg string, obj any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, obj)
}
