package events

import "time"

// OperationStart is published before an operation executes.
type OperationStart struct {
	Query         string
	OperationName string
	OperationType string
	// Persisted is true when the document came from the persisted query
	// cache rather than the request body.
	Persisted bool
}

// OperationFinish is published after an operation completes.
type OperationFinish struct {
	Query         string
	OperationName string
	OperationType string
	ErrorCount    int
	Duration      time.Duration
}
