package executor

import (
	language "github.com/quivergraph/quiver/internal/language"
)

// fieldGroup is one response key and the merged AST fields selecting it.
// Groups preserve document order of first appearance.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// collectFields flattens a selection set against a concrete runtime type,
// applying @skip/@include, fragment type conditions, and named-fragment
// deduplication.
func collectFields(st *executionState, typeName string, selections language.SelectionSet) []*fieldGroup {
	var groups []*fieldGroup
	index := map[string]*fieldGroup{}
	visited := map[string]bool{}
	collectFieldsInto(st, typeName, selections, visited, &groups, index)
	return groups
}

func collectFieldsInto(
	st *executionState,
	typeName string,
	selections language.SelectionSet,
	visited map[string]bool,
	groups *[]*fieldGroup,
	index map[string]*fieldGroup,
) {
	for _, sel := range selections {
		switch s := sel.(type) {
		case *language.Field:
			if !includeSelection(st, s.Directives) {
				continue
			}
			g, ok := index[s.Alias]
			if !ok {
				g = &fieldGroup{ResponseName: s.Alias}
				index[s.Alias] = g
				*groups = append(*groups, g)
			}
			g.Fields = append(g.Fields, s)

		case *language.InlineFragment:
			if !includeSelection(st, s.Directives) {
				continue
			}
			if s.TypeCondition != "" && !st.exec.schema.IsPossibleType(s.TypeCondition, typeName) {
				continue
			}
			collectFieldsInto(st, typeName, s.SelectionSet, visited, groups, index)

		case *language.FragmentSpread:
			if !includeSelection(st, s.Directives) {
				continue
			}
			// Each named fragment contributes at most once per top-level
			// collection, no matter how many spreads reach it.
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			frag := st.document.Fragments.ForName(s.Name)
			if frag == nil {
				continue
			}
			if !st.exec.schema.IsPossibleType(frag.TypeCondition, typeName) {
				continue
			}
			collectFieldsInto(st, typeName, frag.SelectionSet, visited, groups, index)
		}
	}
}

// includeSelection evaluates @skip and @include. When both appear, @skip
// wins: a skipped selection stays out even if @include(if: true) is present.
func includeSelection(st *executionState, directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil {
		if directiveIf(st, d) {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if !directiveIf(st, d) {
			return false
		}
	}
	return true
}

func directiveIf(st *executionState, d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v := arg.Value
	if v.Kind == language.Variable {
		b, _ := st.variables[v.Raw].(bool)
		return b
	}
	return v.Kind == language.BooleanValue && v.Raw == "true"
}

// mergeSelectionSets concatenates the sub-selections of merged fields for
// execution of the shared response key.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
