package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivergraph/quiver/internal/engine"
	"github.com/quivergraph/quiver/internal/execctx"
	"github.com/quivergraph/quiver/internal/executor"
)

type principalKey struct{}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	eng, err := engine.New(`type Query { foo: String, who: String }`,
		engine.WithResolver("Query.foo", func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
			return "bar", nil
		}),
		engine.WithResolver("Query.who", func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
			name, _ := info.Context.Value(principalKey{}).(string)
			return name, nil
		}),
	)
	require.NoError(t, err)
	return New(eng, opts...)
}

func TestServeHTTP_Post(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ foo }"}`))
	req.Header.Set("Content-Type", "application/json")

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"foo":"bar"}}`, rec.Body.String())
}

func TestServeHTTP_Get(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	target := "/graphql?query=" + url.QueryEscape("{ foo }")

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"foo":"bar"}}`, rec.Body.String())
}

func TestServeHTTP_Batch(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	body := `[{"query":"{ foo }"},{"query":"{ a: foo }"}]`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"data":{"foo":"bar"}},{"data":{"a":"bar"}}]`, rec.Body.String())
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/graphql", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(8))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ foo }"}`))
	req.Header.Set("Content-Type", "application/json")

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServeHTTP_CORSPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("https://app.example.com"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://app.example.com")

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeHTTP_ContextFactory(t *testing.T) {
	h := newTestHandler(t, WithContextFactory(func(r *http.Request) (*execctx.Context, error) {
		return execctx.New().With(principalKey{}, r.Header.Get("X-User")), nil
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ who }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "ada")

	h.ServeHTTP(rec, req)

	assert.JSONEq(t, `{"data":{"who":"ada"}}`, rec.Body.String())
}

func TestServeHTTP_WebSocketDelegation(t *testing.T) {
	delegated := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delegated = true
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	h := newTestHandler(t, WithWebSocket(ws))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")

	h.ServeHTTP(rec, req)

	assert.True(t, delegated)
}

func TestServeHTTP_PersistedQueryOnlyBody(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	body := `{"extensions":{"persistedQuery":{"version":1,"sha256Hash":"deadbeef"}}}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	h.ServeHTTP(rec, req)

	// The request is well-formed HTTP-wise; the engine answers with the
	// retry signal.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PersistedQueryNotFound")
}
