// Package graphqlws serves GraphQL subscriptions over WebSocket, speaking
// both the graphql-transport-ws protocol and the legacy graphql-ws
// protocol. The dialect is picked per connection from the negotiated
// subprotocol; the state machine is otherwise shared.
package graphqlws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/quivergraph/quiver/internal/engine"
	"github.com/quivergraph/quiver/internal/eventbus"
	"github.com/quivergraph/quiver/internal/events"
	"github.com/quivergraph/quiver/internal/execctx"
	"github.com/quivergraph/quiver/internal/executor"
	"github.com/quivergraph/quiver/internal/logging"
)

const writeTimeout = 10 * time.Second

// Options configures a Handler.
type Options struct {
	Engine *engine.Engine
	Logger *slog.Logger

	// OnConnect, when set, validates the connection_init payload and
	// returns the execution context layered onto every operation of the
	// connection. Returning a *CloseError closes the handshake with that
	// code; any other error closes with 4403 Forbidden.
	OnConnect func(ctx context.Context, payload json.RawMessage) (*execctx.Context, error)

	// InitTimeout bounds the wait for connection_init. Defaults to 5s.
	InitTimeout time.Duration

	// KeepAliveInterval enables periodic ka frames on legacy connections
	// when positive.
	KeepAliveInterval time.Duration

	// InsecureSkipOriginVerify disables the Origin check on upgrade.
	InsecureSkipOriginVerify bool
}

// Handler upgrades HTTP requests to GraphQL WebSocket connections.
type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 5 * time.Second
	}
	return &Handler{opts: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{SubprotocolTransportWS, SubprotocolLegacyWS},
		InsecureSkipVerify: h.opts.InsecureSkipOriginVerify,
	})
	if err != nil {
		h.opts.Logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &connection{
		handler: h,
		ws:      ws,
		legacy:  ws.Subprotocol() == SubprotocolLegacyWS,
		log:     h.opts.Logger.With("subprotocol", ws.Subprotocol()),
		subs:    map[string]context.CancelFunc{},
	}
	c.run(r.Context())
}

type connection struct {
	handler *Handler
	ws      *websocket.Conn
	legacy  bool
	log     *slog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	subs  map[string]context.CancelFunc
	ectx  *execctx.Context
	ready bool
}

func (c *connection) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	start := time.Now()
	subprotocol := c.ws.Subprotocol()
	eventbus.Publish(ctx, events.WSConnect{Subprotocol: subprotocol})

	defer func() {
		cancel()
		c.mu.Lock()
		for _, cancelSub := range c.subs {
			cancelSub()
		}
		c.subs = map[string]context.CancelFunc{}
		c.mu.Unlock()
		_ = c.ws.Close(websocket.StatusNormalClosure, "connection closed")
		eventbus.Publish(parent, events.WSDisconnect{Subprotocol: subprotocol, Duration: time.Since(start)})
	}()

	initTimer := time.AfterFunc(c.handler.opts.InitTimeout, func() {
		c.mu.Lock()
		ready := c.ready
		c.mu.Unlock()
		if !ready {
			c.closeWith(closeInitTimeout, "connection initialisation timeout")
		}
	})
	defer initTimer.Stop()

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames answer with a protocol error message; the
			// connection and its active subscriptions stay up.
			c.sendError("", []executor.GraphQLError{{Message: "invalid message"}})
			continue
		}
		if !c.dispatch(ctx, &msg) {
			return
		}
	}
}

// dispatch handles one frame; a false return ends the read loop.
func (c *connection) dispatch(ctx context.Context, msg *message) bool {
	switch msg.Type {
	case msgConnectionInit:
		return c.handleInit(ctx, msg)

	case msgPing:
		_ = c.send(&message{Type: msgPong, Payload: msg.Payload})
		return true

	case msgPong, msgKeepAlive:
		return true

	case msgSubscribe, msgStart:
		return c.handleSubscribe(ctx, msg)

	case msgComplete, msgStop:
		// Stopping an unknown id is a no-op.
		c.cancelSubscription(msg.ID)
		return true

	case msgConnectionTerminate:
		return false
	}

	c.sendError(msg.ID, []executor.GraphQLError{{
		Message: fmt.Sprintf("unknown message type %q", msg.Type),
	}})
	return true
}

func (c *connection) handleInit(ctx context.Context, msg *message) bool {
	c.mu.Lock()
	already := c.ready
	c.mu.Unlock()
	if already {
		c.closeWith(closeTooManyInitRequests, "too many initialisation requests")
		return false
	}

	ectx := execctx.New()
	if hook := c.handler.opts.OnConnect; hook != nil {
		hectx, err := hook(ctx, msg.Payload)
		if err != nil {
			code, reason := closeForbidden, "forbidden"
			if closeErr, ok := err.(*CloseError); ok {
				code, reason = closeErr.Code, closeErr.Reason
			}
			// The legacy protocol reports init failures in-band before the
			// close; transport-ws carries the reason on the close frame.
			if c.legacy {
				if payload, merr := json.Marshal(map[string]string{"message": err.Error()}); merr == nil {
					_ = c.send(&message{Type: msgConnectionError, Payload: payload})
				}
			}
			c.closeWith(code, reason)
			return false
		}
		ectx = hectx
	}

	c.mu.Lock()
	c.ready = true
	c.ectx = ectx
	c.mu.Unlock()

	if err := c.send(&message{Type: msgConnectionAck}); err != nil {
		return false
	}
	if c.legacy {
		_ = c.send(&message{Type: msgKeepAlive})
		if interval := c.handler.opts.KeepAliveInterval; interval > 0 {
			go c.keepAlive(ctx, interval)
		}
	}
	return true
}

func (c *connection) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.send(&message{Type: msgKeepAlive}) != nil {
				return
			}
		}
	}
}

func (c *connection) handleSubscribe(ctx context.Context, msg *message) bool {
	c.mu.Lock()
	ready := c.ready
	ectx := c.ectx
	c.mu.Unlock()
	if !ready {
		c.closeWith(closeUnauthorized, "unauthorized")
		return false
	}
	if msg.ID == "" {
		c.closeWith(closeBadRequest, "subscribe requires an id")
		return false
	}

	var req engine.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, []executor.GraphQLError{{Message: "invalid subscribe payload"}})
		return true
	}

	subCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if _, dup := c.subs[msg.ID]; dup {
		c.mu.Unlock()
		cancel()
		// A duplicate id fails just that operation; the connection and its
		// other subscriptions stay up.
		c.sendError(msg.ID, []executor.GraphQLError{{
			Message: fmt.Sprintf("subscriber for %s already exists", msg.ID),
		}})
		return true
	}
	c.subs[msg.ID] = cancel
	c.mu.Unlock()

	go c.stream(subCtx, ectx.With(subscriptionIDKey{}, msg.ID), msg.ID, &req)
	return true
}

func (c *connection) stream(ctx context.Context, ectx *execctx.Context, id string, req *engine.Request) {
	start := time.Now()
	eventbus.Publish(ctx, events.SubscriptionStart{ID: id, OperationName: req.OperationName})
	count := 0
	defer func() {
		c.cancelSubscription(id)
		eventbus.Publish(context.WithoutCancel(ctx), events.SubscriptionFinish{
			ID:       id,
			Events:   count,
			Duration: time.Since(start),
		})
	}()

	stream, errs := c.handler.opts.Engine.Subscribe(ctx, ectx, req)
	if errs != nil {
		c.sendError(id, errs)
		return
	}

	for ev := range stream {
		if ev.Err != nil {
			// Terminal stream failure: an error message ends the
			// operation without a trailing complete.
			c.sendError(id, []executor.GraphQLError{{Message: ev.Err.Error()}})
			return
		}
		count++
		if err := c.sendResult(id, ev.Response); err != nil {
			return
		}
	}
	if ctx.Err() == nil {
		_ = c.send(&message{ID: id, Type: c.completeType()})
	}
}

func (c *connection) cancelSubscription(id string) {
	c.mu.Lock()
	cancel, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *connection) sendResult(id string, resp *engine.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	typ := msgNext
	if c.legacy {
		typ = msgData
	}
	return c.send(&message{ID: id, Type: typ, Payload: payload})
}

func (c *connection) sendError(id string, errs []executor.GraphQLError) {
	var payload []byte
	var err error
	if c.legacy {
		// The legacy protocol carries a single error object.
		payload, err = json.Marshal(errs[0])
	} else {
		payload, err = json.Marshal(errs)
	}
	if err != nil {
		return
	}
	_ = c.send(&message{ID: id, Type: msgError, Payload: payload})
}

func (c *connection) completeType() string {
	// Both protocols use "complete" for server-side completion.
	return msgComplete
}

func (c *connection) send(msg *message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, b)
}

func (c *connection) closeWith(code websocket.StatusCode, reason string) {
	c.log.Debug("closing websocket", "code", int(code), "reason", reason)
	_ = c.ws.Close(code, reason)
}

type subscriptionIDKey struct{}

// SubscriptionID extracts the operation id the transport layered onto the
// execution context.
func SubscriptionID(ectx *execctx.Context) (string, bool) {
	id, ok := ectx.Value(subscriptionIDKey{}).(string)
	return id, ok
}
