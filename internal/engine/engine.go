// Package engine assembles an executable GraphQL schema from SDL, a
// resolver map, and a coercion registry, and exposes request-level Execute
// and Subscribe entry points for the transports.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/quivergraph/quiver/internal/coerce"
	"github.com/quivergraph/quiver/internal/eventbus"
	"github.com/quivergraph/quiver/internal/events"
	"github.com/quivergraph/quiver/internal/execctx"
	"github.com/quivergraph/quiver/internal/executor"
	"github.com/quivergraph/quiver/internal/introspection"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// TypeCheckFunc reports whether a resolved value belongs to one concrete
// object type. Checkers are an alternative to a single ResolveTypeFunc.
type TypeCheckFunc func(value any) bool

// Option configures an Engine under construction.
type Option func(*options)

type options struct {
	resolvers            map[string]executor.ResolveFunc
	defaultResolver      executor.ResolveFunc
	coercers             map[string]coerce.Coercing
	instrumentations     []executor.Instrumentation
	typeResolver         executor.ResolveTypeFunc
	typeCheckers         map[string]TypeCheckFunc
	queryRoot            any
	mutationRoot         any
	subscriptionRoot     any
	docCache             DocumentCache
	disableIntrospection bool
}

// WithResolver binds fn to a "TypeName.fieldName" coordinate.
func WithResolver(coordinate string, fn executor.ResolveFunc) Option {
	return func(o *options) { o.resolvers[coordinate] = fn }
}

// WithResolvers merges a whole resolver map.
func WithResolvers(resolvers map[string]executor.ResolveFunc) Option {
	return func(o *options) {
		for coordinate, fn := range resolvers {
			o.resolvers[coordinate] = fn
		}
	}
}

// WithDefaultResolver installs the fallback for coordinates with no
// explicit resolver.
func WithDefaultResolver(fn executor.ResolveFunc) Option {
	return func(o *options) { o.defaultResolver = fn }
}

// WithCoercer registers a Coercing for a named type.
func WithCoercer(typeName string, c coerce.Coercing) Option {
	return func(o *options) { o.coercers[typeName] = c }
}

// WithInstrumentation appends a field-resolution instrumentation.
func WithInstrumentation(i executor.Instrumentation) Option {
	return func(o *options) { o.instrumentations = append(o.instrumentations, i) }
}

// WithTypeResolver installs a single resolver for all abstract types.
// Mutually exclusive with WithTypeChecker.
func WithTypeResolver(fn executor.ResolveTypeFunc) Option {
	return func(o *options) { o.typeResolver = fn }
}

// WithTypeChecker registers a membership predicate for one concrete object
// type. Abstract values resolve to the first matching checker in type-name
// order. Mutually exclusive with WithTypeResolver.
func WithTypeChecker(typeName string, check TypeCheckFunc) Option {
	return func(o *options) { o.typeCheckers[typeName] = check }
}

// WithQueryRoot sets the root value passed to query root resolvers.
func WithQueryRoot(v any) Option {
	return func(o *options) { o.queryRoot = v }
}

// WithMutationRoot sets the root value passed to mutation root resolvers.
func WithMutationRoot(v any) Option {
	return func(o *options) { o.mutationRoot = v }
}

// WithSubscriptionRoot sets the root value passed to subscription root
// resolvers.
func WithSubscriptionRoot(v any) Option {
	return func(o *options) { o.subscriptionRoot = v }
}

// WithDocumentCache replaces the default in-memory persisted query cache.
func WithDocumentCache(c DocumentCache) Option {
	return func(o *options) { o.docCache = c }
}

// WithoutIntrospection disables the __schema and __type root fields.
func WithoutIntrospection() Option {
	return func(o *options) { o.disableIntrospection = true }
}

// Engine is an executable schema. It is immutable after New and safe for
// concurrent use.
type Engine struct {
	schema               *schema.Schema
	exec                 *executor.Executor
	docCache             DocumentCache
	queryRoot            any
	mutationRoot         any
	subscriptionRoot     any
	disableIntrospection bool
}

// New builds an Engine from SDL. Configuration defects (invalid SDL,
// custom scalars without coercers, conflicting type resolution options)
// fail here rather than at request time.
func New(sdl string, opts ...Option) (*Engine, error) {
	o := &options{
		resolvers:    map[string]executor.ResolveFunc{},
		coercers:     map[string]coerce.Coercing{},
		typeCheckers: map[string]TypeCheckFunc{},
	}
	for _, opt := range opts {
		opt(o)
	}

	sch, err := schema.Load("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}

	if o.typeResolver != nil && len(o.typeCheckers) > 0 {
		return nil, fmt.Errorf("WithTypeResolver and WithTypeChecker are mutually exclusive")
	}

	registry := coerce.NewRegistry()
	for name, c := range o.coercers {
		if sch.TypeDefinition(name) == nil {
			return nil, fmt.Errorf("coercer registered for unknown type %s", name)
		}
		registry.Register(name, c)
	}
	if err := checkScalarCoverage(sch, registry); err != nil {
		return nil, err
	}

	resolvers := map[string]executor.ResolveFunc{}
	if !o.disableIntrospection {
		introspection.ExtendSchema(sch)
		for coordinate, fn := range introspection.Resolvers(sch) {
			resolvers[coordinate] = fn
		}
	}
	for coordinate, fn := range o.resolvers {
		resolvers[coordinate] = fn
	}

	resolveType := o.typeResolver
	if resolveType == nil && len(o.typeCheckers) > 0 {
		resolveType = checkerTypeResolver(sch, o.typeCheckers)
	}

	docCache := o.docCache
	if docCache == nil {
		docCache = NewMemoryDocumentCache()
	}

	return &Engine{
		schema: sch,
		exec: executor.New(executor.Config{
			Schema:           sch,
			Registry:         registry,
			Resolvers:        resolvers,
			DefaultResolver:  o.defaultResolver,
			ResolveType:      resolveType,
			Instrumentations: o.instrumentations,
		}),
		docCache:             docCache,
		queryRoot:            o.queryRoot,
		mutationRoot:         o.mutationRoot,
		subscriptionRoot:     o.subscriptionRoot,
		disableIntrospection: o.disableIntrospection,
	}, nil
}

// checkScalarCoverage rejects schemas declaring custom scalars that have no
// registered Coercing. Enums are fine without one; they fall back to
// identity coercion.
func checkScalarCoverage(sch *schema.Schema, registry *coerce.Registry) error {
	names := make([]string, 0, len(sch.AST().Types))
	for name := range sch.AST().Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := sch.TypeDefinition(name)
		if def.Kind != language.Scalar || coerce.IsBuiltinScalar(name) {
			continue
		}
		if len(name) >= 2 && name[:2] == "__" {
			continue
		}
		if _, ok := registry.Lookup(name); !ok {
			return &coerce.ConfigError{Type: name}
		}
	}
	return nil
}

// checkerTypeResolver derives a ResolveTypeFunc from per-type membership
// predicates. Checkers are consulted in sorted type-name order, restricted
// to the abstract type's possible types; the first match wins.
func checkerTypeResolver(sch *schema.Schema, checkers map[string]TypeCheckFunc) executor.ResolveTypeFunc {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(ctx context.Context, abstractType string, value any) (string, error) {
		for _, name := range names {
			if !sch.IsPossibleType(abstractType, name) {
				continue
			}
			if checkers[name](value) {
				return name, nil
			}
		}
		return "", fmt.Errorf("no type checker matched value of abstract type %s", abstractType)
	}
}

// Schema exposes the loaded schema, including introspection extensions.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Execute runs one query or mutation request end to end: document loading
// (with persisted query support), validation, variable coercion, and
// operation execution.
func (e *Engine) Execute(ctx context.Context, ectx *execctx.Context, req *Request) *Response {
	doc, persisted, errResp := e.loadDocument(req)
	if errResp != nil {
		return errResp
	}

	op := doc.Operations.ForName(req.OperationName)
	opType := "query"
	if op != nil {
		opType = string(op.Operation)
	}
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Persisted:     persisted,
	})

	result := e.exec.Execute(ctx, ectx, doc, req.OperationName, req.Variables, e.rootValueFor(op))

	eventbus.Publish(ctx, events.OperationFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		ErrorCount:    len(result.Errors),
		Duration:      time.Since(start),
	})
	return responseFromResult(result)
}

// StreamEvent is one emission of a subscription. Err, when set, is terminal.
type StreamEvent struct {
	Response *Response
	Err      error
}

// Subscribe starts a subscription operation. Request-level failures come
// back as a non-nil error slice; otherwise the returned channel emits one
// StreamEvent per source event and closes when the stream ends or ctx is
// canceled.
func (e *Engine) Subscribe(ctx context.Context, ectx *execctx.Context, req *Request) (<-chan StreamEvent, []executor.GraphQLError) {
	doc, _, errResp := e.loadDocument(req)
	if errResp != nil {
		return nil, errResp.Errors
	}

	src, err := e.exec.Subscribe(ctx, ectx, doc, req.OperationName, req.Variables, e.subscriptionRoot)
	if err != nil {
		return nil, []executor.GraphQLError{{Message: err.Error()}}
	}

	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		for ev := range src {
			se := StreamEvent{Err: ev.Err}
			if ev.Result != nil {
				se.Response = responseFromResult(ev.Result)
			}
			select {
			case out <- se:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (e *Engine) rootValueFor(op *language.OperationDefinition) any {
	if op == nil {
		return e.queryRoot
	}
	switch op.Operation {
	case language.Mutation:
		return e.mutationRoot
	case language.Subscription:
		return e.subscriptionRoot
	}
	return e.queryRoot
}

// loadDocument resolves the request to a validated document, consulting the
// persisted query cache when the request carries a sha256 hash.
func (e *Engine) loadDocument(req *Request) (*language.QueryDocument, bool, *Response) {
	hash := persistedQueryHash(req.Extensions)
	if hash == "" {
		if req.Query == "" {
			return nil, false, errorResponse(CodeParseFailed, "no query supplied")
		}
		doc, errResp := e.parseAndValidate(req.Query)
		return doc, false, errResp
	}

	if req.Query == "" {
		doc, ok := e.docCache.Get(hash)
		if !ok {
			return nil, false, errorResponse(CodePersistedQueryNotFound, "PersistedQueryNotFound")
		}
		return doc, true, nil
	}

	// Trust on first use, but only after the hash actually matches the
	// supplied query.
	if sha256Hex(req.Query) != hash {
		return nil, false, errorResponse(CodePersistedQueryMismatch, "provided sha256Hash does not match query")
	}
	doc, errResp := e.parseAndValidate(req.Query)
	if errResp != nil {
		return nil, false, errResp
	}
	e.docCache.Put(hash, doc)
	return doc, false, nil
}

func (e *Engine) parseAndValidate(query string) (*language.QueryDocument, *Response) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, errorResponse(CodeParseFailed, err.Error())
	}
	if list := language.Validate(e.schema.AST(), doc); len(list) > 0 {
		return nil, &Response{Errors: listToErrors(CodeValidationFailed, list)}
	}
	// The validator treats __schema and __type as intrinsic meta fields, so
	// disabling introspection needs an explicit document check.
	if e.disableIntrospection {
		if name := introspectionField(doc); name != "" {
			return nil, errorResponse(CodeValidationFailed,
				fmt.Sprintf("introspection is disabled: cannot query field %q", name))
		}
	}
	return doc, nil
}

// introspectionField returns the name of the first __schema or __type field
// selected anywhere in doc, or "".
func introspectionField(doc *language.QueryDocument) string {
	var walk func(language.SelectionSet) string
	walk = func(set language.SelectionSet) string {
		for _, sel := range set {
			switch s := sel.(type) {
			case *language.Field:
				if s.Name == "__schema" || s.Name == "__type" {
					return s.Name
				}
				if name := walk(s.SelectionSet); name != "" {
					return name
				}
			case *language.InlineFragment:
				if name := walk(s.SelectionSet); name != "" {
					return name
				}
			}
		}
		return ""
	}
	for _, op := range doc.Operations {
		if name := walk(op.SelectionSet); name != "" {
			return name
		}
	}
	for _, frag := range doc.Fragments {
		if name := walk(frag.SelectionSet); name != "" {
			return name
		}
	}
	return ""
}

func responseFromResult(result *executor.Result) *Response {
	resp := &Response{Errors: result.Errors}
	if !result.Executed {
		return resp
	}
	data, err := json.Marshal(result.Data)
	if err != nil {
		return &Response{Errors: []executor.GraphQLError{{Message: fmt.Sprintf("marshal response data: %s", err)}}}
	}
	resp.Data = data
	return resp
}
