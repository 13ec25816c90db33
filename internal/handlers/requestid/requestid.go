package requestid

import (
	"context"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Create a new context with the request id
func New(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Extract the request id from the context
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
