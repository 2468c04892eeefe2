package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyRunID     ctxKey = "run_id"
)

var level = new(slog.LevelVar)

// logger may be replaced by SetOutput while other goroutines log.
var logger atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stdout)
}

// Logger returns the global JSON logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetOutput replaces the global logger's destination. Used by the CLI to keep
// stdout clean for command output.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLevel parses debug/info/warn/error; unknown values leave the level as is.
func SetLevel(s string) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return Logger().With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// WithRunID stores a run_id in the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// LoggerFromContext adds request_id and run_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	l := Logger()
	if reqID, _ := ctx.Value(ctxKeyRequestID).(string); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if runID, _ := ctx.Value(ctxKeyRunID).(string); runID != "" {
		l = l.With("run_id", runID)
	}
	return l
}
