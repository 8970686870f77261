package executor

import (
	"errors"
	"fmt"
	"reflect"

	language "github.com/quivergraph/quiver/internal/language"
)

// completeValue converts a resolved value to its response form, driven by
// the field's declared type.
//
// Every failure inside completion records its error exactly once, at the
// frame that detected it, then returns errBubbleNull. The sentinel travels
// up to the nearest nullable position, which absorbs it to a plain null;
// non-null frames it passes through add nothing.
func (st *executionState) completeValue(
	t *language.Type,
	fields []*language.Field,
	value any,
	path Path,
	bag *errBag,
) (any, error) {
	if t.NonNull {
		inner := &language.Type{NamedType: t.NamedType, Elem: t.Elem, Position: t.Position}
		completed, err := st.completeValue(inner, fields, value, path, bag)
		if err != nil {
			return nil, err
		}
		if completed == nil {
			bag.add(GraphQLError{
				Message:   fmt.Sprintf("cannot return null for non-nullable field %s", pathString(path)),
				Locations: locationsOf(fields[0].Position),
				Path:      path,
			})
			return nil, errBubbleNull
		}
		return completed, nil
	}

	if isNullish(value) {
		return nil, nil
	}

	if isListType(t) {
		return st.completeListValue(t, fields, value, path, bag)
	}

	def := st.exec.schema.TypeDefinition(t.NamedType)
	if def == nil {
		bag.add(GraphQLError{
			Message: fmt.Sprintf("unknown type %q in field position %s", t.NamedType, pathString(path)),
			Path:    path,
		})
		return nil, errBubbleNull
	}

	switch def.Kind {
	case language.Scalar, language.Enum:
		out, err := st.exec.registry.SerializeLeaf(def, value)
		if err != nil {
			bag.add(GraphQLError{
				Message:   err.Error(),
				Locations: locationsOf(fields[0].Position),
				Path:      path,
			})
			return nil, errBubbleNull
		}
		return out, nil
	case language.Object:
		return st.completeObjectValue(def.Name, fields, value, path, bag)
	case language.Interface, language.Union:
		return st.completeAbstractValue(def, fields, value, path, bag)
	}

	bag.add(GraphQLError{
		Message: fmt.Sprintf("type %s cannot be used as output", def.Name),
		Path:    path,
	})
	return nil, errBubbleNull
}

func (st *executionState) completeListValue(
	t *language.Type,
	fields []*language.Field,
	value any,
	path Path,
	bag *errBag,
) (any, error) {
	items, ok := asList(value)
	if !ok {
		bag.add(GraphQLError{
			Message:   fmt.Sprintf("expected a list at %s, got %T", pathString(path), value),
			Locations: locationsOf(fields[0].Position),
			Path:      path,
		})
		return nil, errBubbleNull
	}

	completed := make([]any, len(items))
	for i, item := range items {
		ev, err := st.completeValue(t.Elem, fields, item, appendPath(path, i), bag)
		switch {
		case err == nil:
			completed[i] = ev
		case errors.Is(err, errBubbleNull):
			if t.Elem.NonNull {
				// One poisoned element nulls the whole list.
				return nil, errBubbleNull
			}
			completed[i] = nil
		default:
			return nil, err
		}
	}
	return completed, nil
}

func (st *executionState) completeObjectValue(
	typeName string,
	fields []*language.Field,
	value any,
	path Path,
	bag *errBag,
) (any, error) {
	om, err := st.executeSelectionSet(typeName, mergeSelectionSets(fields), value, path, bag, false)
	if err != nil {
		return nil, err
	}
	return om, nil
}

func (st *executionState) completeAbstractValue(
	def *language.Definition,
	fields []*language.Field,
	value any,
	path Path,
	bag *errBag,
) (any, error) {
	if st.exec.resolveType == nil {
		bag.add(GraphQLError{
			Message: fmt.Sprintf("no type resolver configured for abstract type %s", def.Name),
			Path:    path,
		})
		return nil, errBubbleNull
	}
	concrete, err := st.exec.resolveType(st.ctx, def.Name, value)
	if err != nil {
		bag.add(GraphQLError{
			Message:   fmt.Sprintf("resolve type of %s: %s", def.Name, err),
			Locations: locationsOf(fields[0].Position),
			Path:      path,
		})
		return nil, errBubbleNull
	}
	cdef := st.exec.schema.TypeDefinition(concrete)
	if cdef == nil || cdef.Kind != language.Object || !st.exec.schema.IsPossibleType(def.Name, concrete) {
		bag.add(GraphQLError{
			Message:   fmt.Sprintf("%q is not a possible runtime type of %s", concrete, def.Name),
			Locations: locationsOf(fields[0].Position),
			Path:      path,
		})
		return nil, errBubbleNull
	}
	return st.completeObjectValue(concrete, fields, value, path, bag)
}

// isNullish treats untyped nil and nil-valued pointers, maps, slices, and
// channels as null.
func isNullish(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func asList(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
