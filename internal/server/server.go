// Package server exposes an Engine over HTTP: GET and POST GraphQL
// requests, request batching, CORS, and delegation of WebSocket upgrades to
// the subscription transport.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quivergraph/quiver/internal/engine"
	"github.com/quivergraph/quiver/internal/eventbus"
	"github.com/quivergraph/quiver/internal/events"
	"github.com/quivergraph/quiver/internal/execctx"
	"github.com/quivergraph/quiver/internal/executor"
	"github.com/quivergraph/quiver/internal/reqid"
)

const errBodyTooLarge = "request body too large"

// ContextFactory builds the per-request execution context, typically from
// auth headers.
type ContextFactory func(r *http.Request) (*execctx.Context, error)

type Options struct {
	// Timeout applies when the incoming request context has no deadline.
	// 0 disables the default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses.
	Pretty bool

	// MaxBodyBytes limits the POST body size. 0 means unlimited.
	MaxBodyBytes int64

	// AllowedOrigins enables CORS when non-empty. "*" allows any origin.
	AllowedOrigins []string

	// ContextFactory, when set, derives the execution context per request.
	ContextFactory ContextFactory

	// WebSocket, when set, receives requests carrying a websocket upgrade.
	WebSocket http.Handler
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option     { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                     { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option        { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option      { return func(o *Options) { o.AllowedOrigins = origins } }
func WithContextFactory(f ContextFactory) Option {
	return func(o *Options) { o.ContextFactory = f }
}
func WithWebSocket(h http.Handler) Option { return func(o *Options) { o.WebSocket = h } }

// Handler serves a GraphQL endpoint backed by an Engine.
type Handler struct {
	engine *engine.Engine
	opt    Options
}

func New(eng *engine.Engine, opts ...Option) *Handler {
	opt := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&opt)
	}
	return &Handler{engine: eng, opt: opt}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.opt.WebSocket != nil && isUpgrade(r) {
		h.opt.WebSocket.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx = reqid.WithContext(ctx, reqid.New())

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.AllowedOrigins) > 0 {
		h.setCORSHeaders(w, r)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		h.writeJSON(w, status, messageResponse("method not allowed"))
		return
	}

	ectx, err := h.buildContext(r)
	if err != nil {
		status = http.StatusUnauthorized
		h.writeJSON(w, status, messageResponse(err.Error()))
		return
	}

	single, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != "" {
		status = http.StatusBadRequest
		if perr == errBodyTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, messageResponse(perr))
		return
	}

	if batch != nil {
		responses := make([]*engine.Response, len(batch))
		for i := range batch {
			responses[i] = h.engine.Execute(ctx, ectx, &batch[i])
		}
		h.writeJSON(w, status, responses)
		return
	}
	h.writeJSON(w, status, h.engine.Execute(ctx, ectx, single))
}

func (h *Handler) buildContext(r *http.Request) (*execctx.Context, error) {
	if h.opt.ContextFactory == nil {
		return execctx.New(), nil
	}
	return h.opt.ContextFactory(r)
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// parseRequest supports GET with query parameters and POST with a JSON
// body, where a top-level array is a batch.
func parseRequest(r *http.Request, maxBody int64) (*engine.Request, []engine.Request, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req := &engine.Request{
			Query:         q.Get("query"),
			OperationName: q.Get("operationName"),
		}
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return nil, nil, "invalid 'variables' JSON"
			}
		}
		if v := q.Get("extensions"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Extensions); err != nil {
				return nil, nil, "invalid 'extensions' JSON"
			}
		}
		if req.Query == "" && req.Extensions == nil {
			return nil, nil, "missing 'query'"
		}
		return req, nil, ""
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return nil, nil, "unsupported Content-Type"
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, "failed to read body"
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, nil, errBodyTooLarge
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []engine.Request
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, nil, "invalid JSON"
		}
		if len(batch) == 0 {
			return nil, nil, "empty batch"
		}
		return nil, batch, ""
	}

	var req engine.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, "invalid JSON"
	}
	if req.Query == "" && req.Extensions == nil {
		return nil, nil, "missing 'query'"
	}
	return &req, nil, ""
}

func messageResponse(msg string) *engine.Response {
	return &engine.Response{Errors: []executor.GraphQLError{{Message: msg}}}
}

func (h *Handler) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := ""
	for _, o := range h.opt.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = o
			break
		}
	}
	if allowed == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", allowed)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Vary", "Origin")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
