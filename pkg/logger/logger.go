package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	ownerKey
	loggerKey
)

// New returns a JSON logger on stdout tagged with the service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter is New with an explicit destination. Source locations are
// added at debug level only.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(h).With(slog.String("service", serviceName))
}

// ParseLevel maps a level name such as "debug" or "WARN" to a slog.Level.
// Unrecognised names yield info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithCorrelationID stores the request correlation ID in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithOwner stores the wishlist owner's email in ctx.
func WithOwner(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ownerKey, email)
}

// OwnerFromContext returns the owner email stored by WithOwner.
func OwnerFromContext(ctx context.Context) string {
	email, _ := ctx.Value(ownerKey).(string)
	return email
}

// NewContext attaches a request-scoped logger to ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached by NewContext, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext returns l with whatever request fields ctx carries:
// correlation_id, owner_email, and the active span's trace_id and span_id.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	var args []any
	if id := CorrelationIDFromContext(ctx); id != "" {
		args = append(args, slog.String("correlation_id", id))
	}
	if email := OwnerFromContext(ctx); email != "" {
		args = append(args, slog.String("owner_email", email))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		args = append(args,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}
