package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quivergraph/quiver/internal/coerce"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustLoadSchema loads an SDL schema and fails the test on error.
func mustLoadSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.Load("test.graphql", sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// newTestExecutor wires an executor over an SDL schema and resolver map.
func newTestExecutor(t *testing.T, sdl string, resolvers map[string]ResolveFunc) *Executor {
	t.Helper()
	return New(Config{
		Schema:    mustLoadSchema(t, sdl),
		Registry:  coerce.NewRegistry(),
		Resolvers: resolvers,
	})
}

// valueResolver resolves to a fixed value.
func valueResolver(v any) ResolveFunc {
	return func(ctx context.Context, info *ResolveInfo) (any, error) {
		return v, nil
	}
}

// errorResolver resolves to a fixed error.
func errorResolver(err error) ResolveFunc {
	return func(ctx context.Context, info *ResolveInfo) (any, error) {
		return nil, err
	}
}

// sourceResolver reads the field's response key from a map source.
func sourceResolver() ResolveFunc {
	return func(ctx context.Context, info *ResolveInfo) (any, error) {
		m, _ := info.Source.(map[string]any)
		return m[info.Field.Name], nil
	}
}

// dataJSON marshals a result's data for order-sensitive comparison.
func dataJSON(t *testing.T, res *Result) string {
	t.Helper()
	b, err := json.Marshal(res.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	return string(b)
}
