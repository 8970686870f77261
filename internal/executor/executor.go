package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/quivergraph/quiver/internal/execctx"
	language "github.com/quivergraph/quiver/internal/language"
)

// Execute runs one query or mutation operation from doc against rootValue.
//
// Query root fields and all nested sibling fields resolve concurrently;
// mutation root fields resolve serially in document order. The returned
// Result is deterministic: response keys follow selection order and errors
// follow field order regardless of goroutine scheduling.
func (e *Executor) Execute(
	ctx context.Context,
	ectx *execctx.Context,
	doc *language.QueryDocument,
	operationName string,
	variables map[string]any,
	rootValue any,
) *Result {
	op, errResult := e.selectOperation(doc, operationName)
	if errResult != nil {
		return errResult
	}
	if op.Operation == language.Subscription {
		return &Result{Errors: []GraphQLError{{
			Message: "subscription operations must be executed over a subscription transport",
		}}}
	}

	coerced, err := coerceVariableValues(e.schema, e.registry, op, variables)
	if err != nil {
		return &Result{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	rootTypeName := e.schema.RootTypeNameFor(op.Operation)
	if rootTypeName == "" {
		return &Result{Errors: []GraphQLError{{
			Message: fmt.Sprintf("schema does not support %s operations", op.Operation),
		}}}
	}

	st := &executionState{
		exec:      e,
		ctx:       ctx,
		ectx:      ectx,
		document:  doc,
		variables: coerced,
	}

	bag := &errBag{}
	serial := op.Operation == language.Mutation
	data, execErr := st.executeSelectionSet(rootTypeName, op.SelectionSet, rootValue, Path{}, bag, serial)

	result := &Result{Executed: true, Errors: bag.errs}
	switch {
	case execErr == nil:
		result.Data = data
	case errors.Is(execErr, errBubbleNull):
		// The bubble reached the root: the whole data tree collapses to
		// null. The originating error is already in the bag.
		result.Data = nil
	default:
		var abort *abortError
		if errors.As(execErr, &abort) {
			result.Errors = []GraphQLError{abort.err}
		} else {
			result.Errors = append(result.Errors, GraphQLError{Message: execErr.Error()})
		}
		result.Data = nil
	}
	return result
}

func (e *Executor) selectOperation(doc *language.QueryDocument, operationName string) (*language.OperationDefinition, *Result) {
	if operationName == "" && len(doc.Operations) > 1 {
		return nil, &Result{Errors: []GraphQLError{{
			Message: "operation name is required when the document defines multiple operations",
		}}}
	}
	op := doc.Operations.ForName(operationName)
	if op == nil {
		if operationName == "" {
			return nil, &Result{Errors: []GraphQLError{{Message: "document defines no operations"}}}
		}
		return nil, &Result{Errors: []GraphQLError{{
			Message: fmt.Sprintf("operation %q is not defined in the document", operationName),
		}}}
	}
	return op, nil
}

// slotResult is the outcome of one response key's resolution.
type slotResult struct {
	value any
	err   error
	bag   *errBag
}

// executeSelectionSet resolves every field group of a selection set against
// source and assembles the ordered response object. Each group's prologue
// (field lookup, argument coercion, instrumentation before-hooks) runs on
// this frame in selection order; when serial is false only the resolver
// bodies fan out to one goroutine each. Assembly afterwards walks slots in
// selection order, merging error bags deterministically.
//
// A non-nil error return is either errBubbleNull (this object position must
// become null) or an abortError propagating to the root.
func (st *executionState) executeSelectionSet(
	typeName string,
	selections language.SelectionSet,
	source any,
	path Path,
	bag *errBag,
	serial bool,
) (*OrderedMap, error) {
	def := st.exec.schema.TypeDefinition(typeName)
	if def == nil || def.Kind != language.Object {
		bag.add(GraphQLError{
			Message: fmt.Sprintf("cannot execute selection set on non-object type %q", typeName),
			Path:    path,
		})
		return nil, errBubbleNull
	}

	groups := collectFields(st, typeName, selections)
	slots := make([]slotResult, len(groups))

	if serial {
		for i := range groups {
			slots[i].bag = &errBag{}
			task := st.prepareFieldGroup(def, groups[i], source, appendPath(path, groups[i].ResponseName), &slots[i])
			if task != nil {
				task()
			}
		}
	} else {
		tasks := make([]func(), len(groups))
		for i := range groups {
			slots[i].bag = &errBag{}
			tasks[i] = st.prepareFieldGroup(def, groups[i], source, appendPath(path, groups[i].ResponseName), &slots[i])
		}
		var wg sync.WaitGroup
		for _, task := range tasks {
			if task == nil {
				continue
			}
			wg.Add(1)
			go func(task func()) {
				defer wg.Done()
				task()
			}(task)
		}
		wg.Wait()
	}

	result := NewOrderedMap()
	var bubble bool
	var abort error
	for i, g := range groups {
		slot := slots[i]
		bag.merge(slot.bag)
		switch {
		case slot.err == nil:
			result.Set(g.ResponseName, slot.value)
		case errors.Is(slot.err, errUnknownField):
			// Key omitted; the error is already in the bag.
		case errors.Is(slot.err, errBubbleNull):
			if fieldTypeNonNull(def, g) {
				bubble = true
			} else {
				// Nearest nullable ancestor: the bubble stops here and the
				// field goes null.
				result.Set(g.ResponseName, nil)
			}
		default:
			if abort == nil {
				abort = slot.err
			}
		}
	}
	if abort != nil {
		return nil, abort
	}
	if bubble {
		return nil, errBubbleNull
	}
	return result, nil
}

func fieldTypeNonNull(def *language.Definition, g *fieldGroup) bool {
	if g.Fields[0].Name == "__typename" {
		return false
	}
	fd := def.Fields.ForName(g.Fields[0].Name)
	return fd != nil && fd.Type.NonNull
}

// prepareFieldGroup runs the serial prologue for one response key: field
// lookup, argument coercion, resolver lookup, and the instrumentation
// before-hooks, in that order. Prologue failures land in the slot
// immediately and return no task; otherwise the returned task dispatches
// the resolver and completes the value, filling the slot when it runs.
//
// Callers invoke prologues in selection order on the collecting frame, so
// before-hooks observe fields in document order even when the resolver
// bodies run concurrently.
func (st *executionState) prepareFieldGroup(
	def *language.Definition,
	g *fieldGroup,
	source any,
	path Path,
	slot *slotResult,
) func() {
	field := g.Fields[0]

	// __typename answers from the static type without touching resolvers
	// or instrumentation.
	if field.Name == "__typename" {
		slot.value = def.Name
		return nil
	}

	fieldDef := def.Fields.ForName(field.Name)
	if fieldDef == nil {
		slot.bag.add(GraphQLError{
			Message:   fmt.Sprintf("cannot query field %q on type %q", field.Name, def.Name),
			Locations: locationsOf(field.Position),
			Path:      path,
		})
		slot.err = errUnknownField
		return nil
	}

	args, err := coerceArgumentValues(st, def.Name, fieldDef, field)
	if err != nil {
		// Argument coercion failures are request-fatal: the whole
		// operation collapses to this single error.
		slot.err = &abortError{err: GraphQLError{
			Message:   err.Error(),
			Locations: locationsOf(field.Position),
			Path:      path,
		}}
		return nil
	}

	fn, err := st.exec.resolverFor(def.Name, field.Name)
	if err != nil {
		slot.bag.add(GraphQLError{
			Message:   err.Error(),
			Locations: locationsOf(field.Position),
			Path:      path,
		})
		slot.err = errBubbleNull
		return nil
	}

	info := &ResolveInfo{
		Context:    st.ectx,
		Source:     source,
		Args:       args,
		Field:      field,
		Fields:     g.Fields,
		Path:       path,
		ParentType: def.Name,
		Schema:     st.exec.schema,
	}

	var afters []func(value any, err error)
	for _, inst := range st.exec.instrumentations {
		if after := inst.BeforeFieldResolve(info); after != nil {
			afters = append(afters, after)
		}
	}

	return func() {
		value, err := safeResolve(st.ctx, fn, info)
		for _, after := range afters {
			after(value, err)
		}
		if err != nil {
			slot.bag.add(GraphQLError{
				Message:   err.Error(),
				Locations: locationsOf(field.Position),
				Path:      path,
			})
			slot.err = errBubbleNull
			return
		}
		slot.value, slot.err = st.completeValue(fieldDef.Type, g.Fields, value, path, slot.bag)
	}
}
