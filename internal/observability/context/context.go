package obscontext

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	businessIDKey contextKey = "business_id"
)

// WithRequestID stores the request correlation identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request identifier, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithBusinessID stores the tenant identifier on the context.
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return ctx
	}
	return context.WithValue(ctx, businessIDKey, businessID)
}

// BusinessIDFromContext returns the tenant identifier, or "" when absent.
func BusinessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(businessIDKey).(string)
	return value
}
