package log

import (
	"context"

	"go.uber.org/zap"
)

type contextKey int

const loggerContextKey contextKey = 0

// Logger wraps a zap.Logger with the helpers used across the agent.
type Logger struct {
	*zap.Logger
}

// WithError returns a child logger carrying err as a structured field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(zap.Error(err))}
}

// IntoContext stores logger in ctx so that FromContext can retrieve it further down the call chain.
func IntoContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the logger stored in ctx, or the global zap logger if none was set.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return &Logger{Logger: logger}
	}
	return &Logger{Logger: zap.L()}
}

// New builds the process logger. Debug selects the human readable development encoder.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
