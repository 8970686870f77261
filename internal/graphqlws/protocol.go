package graphqlws

import (
	"encoding/json"

	"github.com/coder/websocket"
)

// Subprotocol names negotiated during the WebSocket handshake.
const (
	SubprotocolTransportWS = "graphql-transport-ws"
	SubprotocolLegacyWS    = "graphql-ws"
)

// Message types shared by both protocols.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgError          = "error"
	msgComplete       = "complete"
)

// graphql-transport-ws message types.
const (
	msgPing      = "ping"
	msgPong      = "pong"
	msgSubscribe = "subscribe"
	msgNext      = "next"
)

// Legacy graphql-ws message types.
const (
	msgStart               = "start"
	msgData                = "data"
	msgStop                = "stop"
	msgConnectionTerminate = "connection_terminate"
	msgConnectionError     = "connection_error"
	msgKeepAlive           = "ka"
)

// Close codes from the graphql-transport-ws protocol.
const (
	closeBadRequest          websocket.StatusCode = 4400
	closeUnauthorized        websocket.StatusCode = 4401
	closeForbidden           websocket.StatusCode = 4403
	closeInitTimeout         websocket.StatusCode = 4408
	closeTooManyInitRequests websocket.StatusCode = 4429
)

// message is the wire frame of both protocols.
type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CloseError lets an OnConnect hook close the handshake with a specific
// protocol code.
type CloseError struct {
	Code   websocket.StatusCode
	Reason string
}

func (e *CloseError) Error() string { return e.Reason }
