package executor

import (
	language "github.com/quivergraph/quiver/internal/language"
)

// Path locates a field in the response tree. Elements are response keys
// (string) and list indexes (int).
type Path []PathElement

type PathElement any

// Location is a source position inside the executed document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is a located, path-qualified execution error.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// Result is the outcome of executing one operation.
//
// Executed reports whether field execution began. It is false when the
// request failed before any resolver could run (operation selection or
// variable coercion); responses built from such results omit the data key
// entirely instead of carrying an explicit null.
type Result struct {
	Data     any            `json:"data"`
	Errors   []GraphQLError `json:"errors,omitempty"`
	Executed bool           `json:"-"`
}

func locationsOf(pos *language.Position) []Location {
	if pos == nil {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

// errBag accumulates field errors for one concurrency slot. Slots merge
// child bags in selection order after fan-out so the error list is
// deterministic regardless of resolver completion timing.
type errBag struct {
	errs []GraphQLError
}

func (b *errBag) add(err GraphQLError) {
	b.errs = append(b.errs, err)
}

func (b *errBag) merge(o *errBag) {
	b.errs = append(b.errs, o.errs...)
}
