// Package logging provides the structured trace logger injected into the
// simulator, grounded on web3guy0-polybot/risk/circuit_breaker.go's use
// of github.com/rs/zerolog for trading-system trace logging.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the surface the simulator logs through.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Zerolog wraps a zerolog.Logger.
type Zerolog struct {
	zl zerolog.Logger
}

// NewZerolog builds a logger writing structured lines to w.
func NewZerolog(w io.Writer) *Zerolog {
	return &Zerolog{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *Zerolog) Info(msg string, fields ...Field) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Zerolog) Warn(msg string, fields ...Field) {
	emit(l.zl.Warn(), msg, fields)
}

func emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// Noop discards every log line. Useful in tests that only care about the
// event stream.
type Noop struct{}

func (Noop) Info(string, ...Field) {}
func (Noop) Warn(string, ...Field) {}
