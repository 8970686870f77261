// Package reqid tags request contexts with a correlation id so eventbus
// subscribers can pair start and finish events.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New returns a fresh request id.
func New() string {
	return uuid.NewString()
}

// WithContext returns ctx tagged with id.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok
}
