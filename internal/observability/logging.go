// Package observability carries per-request log context (request id and
// operation) through context.Context.
package observability

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader is read from and echoed on every HTTP response.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// LogContext holds structured logging context information.
type LogContext struct {
	RequestID string
	Operation string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = id
	return context.WithValue(ctx, logContextKey, lc)
}

// WithOperation names the operation in progress (update, reload, snapshot).
func WithOperation(ctx context.Context, op string) context.Context {
	lc := extractLogContext(ctx)
	lc.Operation = op
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the LogContext stored in ctx.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	return extractLogContext(ctx).RequestID
}

// LogAttrs returns slog attributes for the context's LogContext.
func LogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr
	if lc.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", lc.RequestID))
	}
	if lc.Operation != "" {
		attrs = append(attrs, slog.String("operation", lc.Operation))
	}
	return attrs
}

// NewRequestID generates a random request id.
func NewRequestID() string {
	return uuid.NewString()
}

// AcceptRequestID returns a usable client-supplied id, or a fresh one when
// the incoming value is empty, too long or contains control characters.
func AcceptRequestID(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" || len(incoming) > maxRequestIDLen {
		return NewRequestID()
	}
	for _, r := range incoming {
		if r < 0x21 || r > 0x7e {
			return NewRequestID()
		}
	}
	return incoming
}
