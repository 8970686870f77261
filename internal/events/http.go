// Package events defines the typed lifecycle events the engine and
// transports publish on the eventbus.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when a GraphQL HTTP request is received.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the HTTP handler completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
