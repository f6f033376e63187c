package store

import "context"

type batchKey struct{}

// WithBatch returns a context carrying the batch ID used to build keys.
func WithBatch(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey{}, id)
}

// BatchFrom returns the batch ID carried by ctx, or "" if none.
func BatchFrom(ctx context.Context) string {
	id, _ := ctx.Value(batchKey{}).(string)
	return id
}
