package engine

import (
	"encoding/json"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/quivergraph/quiver/internal/executor"
)

// Request is the wire shape of a GraphQL request, shared by the HTTP and
// WebSocket transports.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Response is the wire shape of a GraphQL response. Data is pre-marshaled
// so that a request that failed before execution omits the data key
// entirely, while an executed operation that collapsed to null carries an
// explicit "data": null.
type Response struct {
	Data       json.RawMessage         `json:"data,omitempty"`
	Errors     []executor.GraphQLError `json:"errors,omitempty"`
	Extensions map[string]any          `json:"extensions,omitempty"`
}

// Error extension codes surfaced to clients.
const (
	CodeParseFailed            = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed       = "GRAPHQL_VALIDATION_FAILED"
	CodePersistedQueryNotFound = "PERSISTED_QUERY_NOT_FOUND"
	CodePersistedQueryMismatch = "PERSISTED_QUERY_HASH_MISMATCH"
)

func errorResponse(code, message string) *Response {
	return &Response{Errors: []executor.GraphQLError{{
		Message:    message,
		Extensions: map[string]any{"code": code},
	}}}
}

func listToErrors(code string, list gqlerror.List) []executor.GraphQLError {
	out := make([]executor.GraphQLError, 0, len(list))
	for _, gerr := range list {
		e := executor.GraphQLError{
			Message:    gerr.Message,
			Extensions: map[string]any{"code": code},
		}
		for _, loc := range gerr.Locations {
			e.Locations = append(e.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		out = append(out, e)
	}
	return out
}
