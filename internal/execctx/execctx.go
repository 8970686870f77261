// Package execctx provides the request-scoped side channel handed to every
// resolver and instrumentation hook.
//
// A Context is an immutable, layered, heterogeneous map keyed by type-tagged
// keys (package-private struct types by convention, never strings). Layering
// a new element with With never mutates the receiver, so a Context may be
// shared freely across concurrent resolver calls; a connection-level Context
// can be extended per subscription without affecting its siblings.
package execctx

// Context is one layer of the chain. The zero value (nil) is a valid empty
// context.
type Context struct {
	parent *Context
	key    any
	value  any
}

// New returns an empty execution context.
func New() *Context { return nil }

// With returns a new context layering value under key on top of c.
func (c *Context) With(key, value any) *Context {
	return &Context{parent: c, key: key, value: value}
}

// Value returns the value stored under key in the nearest layer, or nil.
func (c *Context) Value(key any) any {
	for l := c; l != nil; l = l.parent {
		if l.key == key {
			return l.value
		}
	}
	return nil
}
