package logger

import "context"

type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID binds the request ID carried by X-Request-ID to the context
// so log lines across the credential flow can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the bound request ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
