package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/quivergraph/quiver/internal/execctx"
	language "github.com/quivergraph/quiver/internal/language"
)

// SubscriptionEvent is one emission of a subscription stream. Exactly one
// of Result and Err is set; an Err event is terminal.
type SubscriptionEvent struct {
	Result *Result
	Err    error
}

// Subscribe resolves the single root field of a subscription operation to
// an event stream and returns a channel of per-event results.
//
// The source stream must be a <-chan any (or chan any). Each value it emits
// runs value completion against the root field's type; the selection set is
// not re-collected per event. The returned channel closes when the source
// closes, ctx is canceled, or the stream emits an error value.
func (e *Executor) Subscribe(
	ctx context.Context,
	ectx *execctx.Context,
	doc *language.QueryDocument,
	operationName string,
	variables map[string]any,
	rootValue any,
) (<-chan SubscriptionEvent, error) {
	op, errResult := e.selectOperation(doc, operationName)
	if errResult != nil {
		return nil, errors.New(errResult.Errors[0].Message)
	}
	if op.Operation != language.Subscription {
		return nil, fmt.Errorf("operation %q is not a subscription", op.Name)
	}

	coerced, err := coerceVariableValues(e.schema, e.registry, op, variables)
	if err != nil {
		return nil, err
	}

	rootTypeName := e.schema.RootTypeNameFor(language.Subscription)
	if rootTypeName == "" {
		return nil, errors.New("schema does not support subscription operations")
	}
	def := e.schema.TypeDefinition(rootTypeName)

	st := &executionState{
		exec:      e,
		ctx:       ctx,
		ectx:      ectx,
		document:  doc,
		variables: coerced,
	}

	groups := collectFields(st, rootTypeName, op.SelectionSet)
	if len(groups) != 1 {
		return nil, errors.New("subscription operations must select exactly one root field")
	}
	g := groups[0]
	field := g.Fields[0]
	if field.Name == "__typename" {
		return nil, errors.New("cannot subscribe to __typename")
	}
	fieldDef := def.Fields.ForName(field.Name)
	if fieldDef == nil {
		return nil, fmt.Errorf("cannot query field %q on type %q", field.Name, rootTypeName)
	}

	path := Path{g.ResponseName}
	args, err := coerceArgumentValues(st, rootTypeName, fieldDef, field)
	if err != nil {
		return nil, err
	}

	info := &ResolveInfo{
		Context:    ectx,
		Source:     rootValue,
		Args:       args,
		Field:      field,
		Fields:     g.Fields,
		Path:       path,
		ParentType: rootTypeName,
		Schema:     e.schema,
	}

	fn, err := e.resolverFor(rootTypeName, field.Name)
	if err != nil {
		return nil, err
	}
	var afters []func(value any, err error)
	for _, inst := range e.instrumentations {
		if after := inst.BeforeFieldResolve(info); after != nil {
			afters = append(afters, after)
		}
	}
	value, err := safeResolve(ctx, fn, info)
	for _, after := range afters {
		after(value, err)
	}
	if err != nil {
		return nil, err
	}

	var src <-chan any
	switch s := value.(type) {
	case <-chan any:
		src = s
	case chan any:
		src = s
	default:
		return nil, fmt.Errorf("subscription resolver for %s.%s must return an event stream, got %T",
			rootTypeName, field.Name, value)
	}

	out := make(chan SubscriptionEvent)
	go st.pumpEvents(src, out, g, fieldDef, path)
	return out, nil
}

func (st *executionState) pumpEvents(
	src <-chan any,
	out chan<- SubscriptionEvent,
	g *fieldGroup,
	fieldDef *language.FieldDefinition,
	path Path,
) {
	defer close(out)
	for {
		select {
		case <-st.ctx.Done():
			return
		case raw, ok := <-src:
			if !ok {
				return
			}
			if err, isErr := raw.(error); isErr {
				select {
				case out <- SubscriptionEvent{Err: err}:
				case <-st.ctx.Done():
				}
				return
			}
			ev := SubscriptionEvent{Result: st.completeEvent(g, fieldDef, raw, path)}
			select {
			case out <- ev:
			case <-st.ctx.Done():
				return
			}
		}
	}
}

// completeEvent runs value completion for one emitted source value.
func (st *executionState) completeEvent(
	g *fieldGroup,
	fieldDef *language.FieldDefinition,
	raw any,
	path Path,
) *Result {
	bag := &errBag{}
	completed, err := st.completeValue(fieldDef.Type, g.Fields, raw, path, bag)

	result := &Result{Executed: true, Errors: bag.errs}
	switch {
	case err == nil:
		data := NewOrderedMap()
		data.Set(g.ResponseName, completed)
		result.Data = data
	case errors.Is(err, errBubbleNull):
		if !fieldDef.Type.NonNull {
			data := NewOrderedMap()
			data.Set(g.ResponseName, nil)
			result.Data = data
		}
	default:
		var abort *abortError
		if errors.As(err, &abort) {
			result.Errors = []GraphQLError{abort.err}
		} else {
			result.Errors = append(result.Errors, GraphQLError{Message: err.Error()})
		}
	}
	return result
}
