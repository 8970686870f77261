package execctx

import "testing"

type userKey struct{}
type traceKey struct{}

func TestNilContextIsValid(t *testing.T) {
	var c *Context
	if got := c.Value(userKey{}); got != nil {
		t.Fatalf("Value on nil = %v", got)
	}
	if got := New().Value(userKey{}); got != nil {
		t.Fatalf("Value on New() = %v", got)
	}
}

func TestWithLayersAndShadows(t *testing.T) {
	base := New().With(userKey{}, "ada").With(traceKey{}, "t1")
	child := base.With(userKey{}, "grace")

	if got := base.Value(userKey{}); got != "ada" {
		t.Fatalf("base user = %v", got)
	}
	if got := child.Value(userKey{}); got != "grace" {
		t.Fatalf("child user = %v", got)
	}
	if got := child.Value(traceKey{}); got != "t1" {
		t.Fatalf("child trace = %v", got)
	}
}

func TestSiblingsAreIsolated(t *testing.T) {
	base := New().With(traceKey{}, "conn")
	a := base.With(userKey{}, "a")
	b := base.With(userKey{}, "b")

	if a.Value(userKey{}) != "a" || b.Value(userKey{}) != "b" {
		t.Fatalf("siblings leaked: a=%v b=%v", a.Value(userKey{}), b.Value(userKey{}))
	}
	if base.Value(userKey{}) != nil {
		t.Fatal("base gained a user layer")
	}
}
