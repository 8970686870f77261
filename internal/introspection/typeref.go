package introspection

import (
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// typeRef is the runtime value behind __Type. Named types carry their
// definition; NON_NULL and LIST wrappers carry only the wrapped ref.
type typeRef struct {
	sch  *schema.Schema
	kind string
	def  *language.Definition
	of   *typeRef
}

func namedTypeRef(sch *schema.Schema, def *language.Definition) *typeRef {
	if def == nil {
		return nil
	}
	return &typeRef{sch: sch, kind: kindName(def.Kind), def: def}
}

func typeRefFromAST(sch *schema.Schema, t *language.Type) *typeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		inner := &language.Type{NamedType: t.NamedType, Elem: t.Elem}
		return &typeRef{sch: sch, kind: "NON_NULL", of: typeRefFromAST(sch, inner)}
	}
	if t.Elem != nil && t.NamedType == "" {
		return &typeRef{sch: sch, kind: "LIST", of: typeRefFromAST(sch, t.Elem)}
	}
	return namedTypeRef(sch, sch.TypeDefinition(t.NamedType))
}

func kindName(k language.DefinitionKind) string {
	switch k {
	case language.Scalar:
		return "SCALAR"
	case language.Object:
		return "OBJECT"
	case language.Interface:
		return "INTERFACE"
	case language.Union:
		return "UNION"
	case language.Enum:
		return "ENUM"
	case language.InputObject:
		return "INPUT_OBJECT"
	}
	return string(k)
}

func (r *typeRef) name() any {
	if r.def == nil {
		return nil
	}
	return r.def.Name
}

func (r *typeRef) description() any {
	if r.def == nil || r.def.Description == "" {
		return nil
	}
	return r.def.Description
}

// fields returns the declared output fields, hiding the meta fields the
// schema loader injects (__typename and friends).
func (r *typeRef) fields(includeDeprecated bool) any {
	if r.def == nil || (r.def.Kind != language.Object && r.def.Kind != language.Interface) {
		return nil
	}
	out := []any{}
	for _, fd := range r.def.Fields {
		if len(fd.Name) >= 2 && fd.Name[:2] == "__" {
			continue
		}
		if deprecated, _ := deprecationOf(fd.Directives); deprecated && !includeDeprecated {
			continue
		}
		out = append(out, fd)
	}
	return out
}

func (r *typeRef) interfaces() any {
	if r.def == nil || (r.def.Kind != language.Object && r.def.Kind != language.Interface) {
		return nil
	}
	out := []any{}
	for _, name := range r.def.Interfaces {
		if ref := namedTypeRef(r.sch, r.sch.TypeDefinition(name)); ref != nil {
			out = append(out, ref)
		}
	}
	return out
}

func (r *typeRef) possibleTypes() any {
	if r.def == nil || (r.def.Kind != language.Interface && r.def.Kind != language.Union) {
		return nil
	}
	out := []any{}
	for _, name := range r.sch.PossibleTypes(r.def.Name) {
		if ref := namedTypeRef(r.sch, r.sch.TypeDefinition(name)); ref != nil {
			out = append(out, ref)
		}
	}
	return out
}

func (r *typeRef) enumValues(includeDeprecated bool) any {
	if r.def == nil || r.def.Kind != language.Enum {
		return nil
	}
	out := []any{}
	for _, ev := range r.def.EnumValues {
		if deprecated, _ := deprecationOf(ev.Directives); deprecated && !includeDeprecated {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (r *typeRef) inputFields() any {
	if r.def == nil || r.def.Kind != language.InputObject {
		return nil
	}
	out := []any{}
	for _, fd := range r.def.Fields {
		out = append(out, inputValue{
			Name:        fd.Name,
			Description: fd.Description,
			Type:        fd.Type,
			Default:     fd.DefaultValue,
		})
	}
	return out
}

func (r *typeRef) ofType() any {
	if r.of == nil {
		return nil
	}
	return r.of
}

// inputValue is the shared runtime value behind __InputValue, covering both
// field arguments and input object fields.
type inputValue struct {
	Name        string
	Description string
	Type        *language.Type
	Default     *language.Value
}

func argInputValues(args language.ArgumentDefinitionList) []any {
	out := []any{}
	for _, a := range args {
		out = append(out, inputValue{
			Name:        a.Name,
			Description: a.Description,
			Type:        a.Type,
			Default:     a.DefaultValue,
		})
	}
	return out
}

func deprecationOf(directives language.DirectiveList) (bool, any) {
	d := directives.ForName("deprecated")
	if d == nil {
		return false, nil
	}
	if a := d.Arguments.ForName("reason"); a != nil {
		return true, a.Value.Raw
	}
	return true, "No longer supported"
}
