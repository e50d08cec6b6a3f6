// Package clawlog defines the narrow logging interface threaded through
// every CLAW package, following the same "small interface, concrete
// zap-backed implementation" split the teacher repo uses for its own
// logger.Logger.
package clawlog

import (
	"go.uber.org/zap"
)

// Logger is the minimal logging surface CLAW packages depend on. Its
// methods take zap.Field values, so callers import zap for the field
// constructors; only this package builds a concrete zap.Logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	l *zap.Logger
}

// New builds a production zap.Logger and wraps it as a Logger.
func New() (Logger, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: zl}, nil
}

// NewNop returns a Logger that discards everything, for tests and
// callers that don't want logging side effects.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...zap.Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{l: z.l.With(fields...)}
}
