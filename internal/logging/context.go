package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	jobIDKey         contextKey = "job_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID creates a short, readable id for a scan/job run.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID attaches a correlation id to ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID attaches a freshly generated correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns "" if none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithJobID attaches the running job's id, surfaced by every log line
// emitted while that job executes.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns "" if no job is associated with ctx.
func JobIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(jobIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stashes a pre-built logger in ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the stashed logger, or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with correlation_id/job_id fields populated from ctx.
//
//	logging.Ctx(ctx).Info().Msg("scan starting")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith returns a builder so callers can chain extra fields before Logger().
func CtxWith(ctx context.Context) zerolog.Context {
	lc := LoggerFromContext(ctx).With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	if id := JobIDFromContext(ctx); id != "" {
		lc = lc.Str("job_id", id)
	}
	return lc
}
