// Package context carries request correlation values shared by logging and tracing.
package context

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	platformIDKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithPlatformID records the platform resolved from the caller's API key.
func WithPlatformID(ctx context.Context, platformID string) context.Context {
	return context.WithValue(ctx, platformIDKey, platformID)
}

func PlatformIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(platformIDKey).(string)
	return v
}
