package services

import "context"

type contextKey string

const (
	commandKey   contextKey = "command"
	sliceKey     contextKey = "slice"
	requestIDKey contextKey = "request_id"
)

// WithCommand annotates context with the dispatcher verb being executed.
func WithCommand(ctx context.Context, verb string) context.Context {
	if verb == "" {
		return ctx
	}
	return context.WithValue(ctx, commandKey, verb)
}

// CommandFromContext returns the dispatcher verb if present.
func CommandFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(commandKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSlice annotates context with the synchronized state slice being refreshed.
func WithSlice(ctx context.Context, slice string) context.Context {
	if slice == "" {
		return ctx
	}
	return context.WithValue(ctx, sliceKey, slice)
}

// SliceFromContext returns the state slice name if present.
func SliceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sliceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
