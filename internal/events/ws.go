package events

import "time"

// WSConnect is published when a WebSocket client completes its handshake.
type WSConnect struct {
	Subprotocol string
}

// WSDisconnect is published when a WebSocket connection ends.
type WSDisconnect struct {
	Subprotocol string
	Duration    time.Duration
}

// SubscriptionStart is published when a subscription operation begins
// streaming.
type SubscriptionStart struct {
	ID            string
	OperationName string
}

// SubscriptionFinish is published when a subscription stops, whatever the
// reason.
type SubscriptionFinish struct {
	ID       string
	Events   int
	Duration time.Duration
}
