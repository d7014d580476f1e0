// Package rlog wraps zerolog with the fixed field vocabulary the daemon and
// proxy engine use: component, event, domain, and err. CLI commands do not
// use this package — they format their own single-line "Error: ..."
// diagnostics per the error-handling design.
package rlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped zerolog wrapper.
type Logger struct {
	base zerolog.Logger
}

// New returns a Logger tagged with component, writing to w (os.Stderr in
// production, a buffer in tests).
func New(component string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	base := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &Logger{base: base}
}

// Event starts a log entry at info level tagged with the given event name.
func (l *Logger) Event(event string) *zerolog.Event {
	return l.base.Info().Str("event", event)
}

// Error starts a log entry at error level tagged with the given event name
// and the wrapped error.
func (l *Logger) Error(event string, err error) *zerolog.Event {
	return l.base.Error().Str("event", event).Err(err)
}

// Warn starts a log entry at warn level tagged with the given event name.
func (l *Logger) Warn(event string) *zerolog.Event {
	return l.base.Warn().Str("event", event)
}

// Debug starts a log entry at debug level tagged with the given event name.
func (l *Logger) Debug(event string) *zerolog.Event {
	return l.base.Debug().Str("event", event)
}
