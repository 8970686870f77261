package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/quivergraph/quiver/internal/coerce"
	"github.com/quivergraph/quiver/internal/execctx"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// ResolveFunc produces the value of one field. The returned value is either
// an internal value to be completed against the field's declared type or,
// for subscription root fields, an event stream (<-chan any).
type ResolveFunc func(ctx context.Context, info *ResolveInfo) (any, error)

// ResolveTypeFunc names the concrete object type of a value resolved at an
// abstract (interface or union) type position.
type ResolveTypeFunc func(ctx context.Context, abstractType string, value any) (string, error)

// ResolveInfo carries everything a resolver may inspect about the field it
// is resolving.
type ResolveInfo struct {
	// Context is the immutable per-request context layered by the host
	// application and the transport, distinct from the cancellation ctx.
	Context *execctx.Context

	// Source is the value the parent field resolved to.
	Source any

	// Args holds the fully coerced argument values.
	Args map[string]any

	// Field is the first of the merged AST fields for this response key;
	// Fields holds all of them.
	Field  *language.Field
	Fields []*language.Field

	// Path locates the field in the response tree.
	Path Path

	ParentType string
	Schema     *schema.Schema
}

// Instrumentation observes field resolution. BeforeFieldResolve runs before
// the resolver; the returned callback, if non-nil, runs with the resolver's
// outcome. Callbacks fire even when the resolver fails.
type Instrumentation interface {
	BeforeFieldResolve(info *ResolveInfo) func(value any, err error)
}

// Config assembles an Executor. Resolvers are keyed "TypeName.fieldName".
type Config struct {
	Schema           *schema.Schema
	Registry         *coerce.Registry
	Resolvers        map[string]ResolveFunc
	DefaultResolver  ResolveFunc
	ResolveType      ResolveTypeFunc
	Instrumentations []Instrumentation
}

// Executor runs operations against a fixed schema, resolver map, and
// coercion registry. It is immutable and safe for concurrent use.
type Executor struct {
	schema           *schema.Schema
	registry         *coerce.Registry
	resolvers        map[string]ResolveFunc
	defaultResolver  ResolveFunc
	resolveType      ResolveTypeFunc
	instrumentations []Instrumentation
}

func New(cfg Config) *Executor {
	reg := cfg.Registry
	if reg == nil {
		reg = coerce.NewRegistry()
	}
	return &Executor{
		schema:           cfg.Schema,
		registry:         reg,
		resolvers:        cfg.Resolvers,
		defaultResolver:  cfg.DefaultResolver,
		resolveType:      cfg.ResolveType,
		instrumentations: cfg.Instrumentations,
	}
}

// errBubbleNull propagates a null out of a non-null position. The field
// error is recorded by whichever frame detected the violation; frames the
// sentinel passes through on its way to the nearest nullable ancestor must
// not report again.
var errBubbleNull = errors.New("null bubbled out of non-null position")

// errUnknownField marks a selection with no matching field definition. The
// response key is omitted; validation normally rejects these before
// execution.
var errUnknownField = errors.New("unknown field")

// abortError carries a request-fatal failure (argument coercion) out of the
// executing selection tree. The whole operation collapses to this one error.
type abortError struct {
	err GraphQLError
}

func (e *abortError) Error() string { return e.err.Message }

// executionState is the per-request view shared by every frame of one
// operation execution.
type executionState struct {
	exec      *Executor
	ctx       context.Context
	ectx      *execctx.Context
	document  *language.QueryDocument
	variables map[string]any
}

func (e *Executor) resolverFor(typeName, fieldName string) (ResolveFunc, error) {
	if fn, ok := e.resolvers[typeName+"."+fieldName]; ok {
		return fn, nil
	}
	if e.defaultResolver != nil {
		return e.defaultResolver, nil
	}
	return nil, fmt.Errorf("no resolver registered for %s.%s", typeName, fieldName)
}

// safeResolve invokes a resolver, converting panics into resolver errors so
// one misbehaving field cannot take down sibling goroutines.
func safeResolve(ctx context.Context, fn ResolveFunc, info *ResolveInfo) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()
	return fn(ctx, info)
}

func pathString(p Path) string {
	out := ""
	for i, el := range p {
		switch v := el.(type) {
		case string:
			if i > 0 {
				out += "."
			}
			out += v
		case int:
			out += fmt.Sprintf("[%d]", v)
		default:
			out += fmt.Sprintf(".%v", v)
		}
	}
	return out
}

func appendPath(p Path, el PathElement) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, el)
}
