package executor

import (
	"fmt"
	"strconv"

	"github.com/quivergraph/quiver/internal/coerce"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// coerceVariableValues converts raw wire variables into internal values per
// the operation's variable definitions. Any failure is request-fatal.
func coerceVariableValues(
	sch *schema.Schema,
	reg *coerce.Registry,
	op *language.OperationDefinition,
	raw map[string]any,
) (map[string]any, error) {
	coerced := map[string]any{}
	for _, vd := range op.VariableDefinitions {
		value, provided := raw[vd.Variable]
		if !provided {
			if vd.DefaultValue != nil {
				// Defaults are trusted as written: they convert straight
				// from the literal, bypassing any registered Coercing.
				coerced[vd.Variable] = defaultFromLiteral(vd.DefaultValue)
				continue
			}
			if vd.Type.NonNull {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", vd.Variable, vd.Type.String())
			}
			// Absent nullable variables stay absent; references to them
			// behave as unprovided arguments, not as explicit nulls.
			continue
		}
		if value == nil && vd.Type.NonNull {
			return nil, fmt.Errorf("variable $%s of non-null type %s must not be null", vd.Variable, vd.Type.String())
		}
		cv, err := coerceInputValue(sch, reg, value, vd.Type)
		if err != nil {
			return nil, fmt.Errorf("variable $%s got invalid value: %w", vd.Variable, err)
		}
		coerced[vd.Variable] = cv
	}
	return coerced, nil
}

// coerceInputValue converts one wire value to its internal form, driven by
// the declared input type.
func coerceInputValue(sch *schema.Schema, reg *coerce.Registry, value any, t *language.Type) (any, error) {
	if t.NonNull {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value of type %s", t.String())
		}
		return coerceInputValue(sch, reg, value, &language.Type{NamedType: t.NamedType, Elem: t.Elem})
	}
	if value == nil {
		return nil, nil
	}
	if t.Elem != nil && t.NamedType == "" {
		items, ok := value.([]any)
		if !ok {
			// A bare value feeding a list position wraps as a one-element
			// list.
			item, err := coerceInputValue(sch, reg, value, t.Elem)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceInputValue(sch, reg, item, t.Elem)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	def := sch.TypeDefinition(t.NamedType)
	if def == nil {
		return nil, fmt.Errorf("unknown input type %s", t.NamedType)
	}
	switch def.Kind {
	case language.Scalar, language.Enum:
		return reg.DeserializeLeaf(def, value)
	case language.InputObject:
		return coerceInputObject(sch, reg, def, value)
	}
	return nil, fmt.Errorf("type %s cannot be used as input", def.Name)
}

func coerceInputObject(sch *schema.Schema, reg *coerce.Registry, def *language.Definition, value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected input object of type %s, got %T", def.Name, value)
	}
	fields := map[string]any{}
	for _, fd := range def.Fields {
		fv, present := m[fd.Name]
		if !present {
			if fd.DefaultValue != nil {
				fields[fd.Name] = defaultFromLiteral(fd.DefaultValue)
				continue
			}
			if fd.Type.NonNull {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, fd.Name, fd.Type.String())
			}
			continue
		}
		if fv == nil && fd.Type.NonNull {
			return nil, fmt.Errorf("field %s.%s of non-null type %s must not be null", def.Name, fd.Name, fd.Type.String())
		}
		cv, err := coerceInputValue(sch, reg, fv, fd.Type)
		if err != nil {
			return nil, fmt.Errorf("at field %s: %w", fd.Name, err)
		}
		fields[fd.Name] = cv
	}
	for k := range m {
		if def.Fields.ForName(k) == nil {
			return nil, fmt.Errorf("unexpected field %q on input object %s", k, def.Name)
		}
	}
	// A Coercing registered for the input object type post-processes the
	// coerced field map as a whole.
	if c, ok := reg.Lookup(def.Name); ok {
		out, err := c.Deserialize(fields)
		if err != nil {
			return nil, &coerce.Error{Type: def.Name, Reason: err.Error()}
		}
		return out, nil
	}
	return fields, nil
}

// defaultFromLiteral converts a literal value node to its plain internal
// form without consulting the coercion registry. Default values are part of
// the schema or document and take effect exactly as authored.
func defaultFromLiteral(v *language.Value) any {
	switch v.Kind {
	case language.NullValue:
		return nil
	case language.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return v.Raw
		}
		return int(n)
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return v.Raw
		}
		return f
	case language.BooleanValue:
		return v.Raw == "true"
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			out = append(out, defaultFromLiteral(child.Value))
		}
		return out
	case language.ObjectValue:
		out := map[string]any{}
		for _, child := range v.Children {
			out[child.Name] = defaultFromLiteral(child.Value)
		}
		return out
	}
	return v.Raw
}

// coerceArgumentValues produces the coerced argument map for one field.
// Literal arguments parse through the registry; variable references reuse
// the already-coerced variable values as-is.
func coerceArgumentValues(
	st *executionState,
	typeName string,
	fieldDef *language.FieldDefinition,
	field *language.Field,
) (map[string]any, error) {
	args := map[string]any{}
	for _, argDef := range fieldDef.Arguments {
		astArg := field.Arguments.ForName(argDef.Name)

		var value any
		var hasValue bool
		if astArg != nil {
			v, present, err := literalToInternal(st, astArg.Value, argDef.Type)
			if err != nil {
				return nil, fmt.Errorf("argument %q of field %s.%s: %w", argDef.Name, typeName, field.Name, err)
			}
			value, hasValue = v, present
		}

		if !hasValue {
			if argDef.DefaultValue != nil {
				args[argDef.Name] = defaultFromLiteral(argDef.DefaultValue)
				continue
			}
			if argDef.Type.NonNull {
				return nil, fmt.Errorf("argument %q of required type %s was not provided to field %s.%s",
					argDef.Name, argDef.Type.String(), typeName, field.Name)
			}
			continue
		}
		if value == nil && argDef.Type.NonNull {
			return nil, fmt.Errorf("argument %q of non-null type %s must not be null on field %s.%s",
				argDef.Name, argDef.Type.String(), typeName, field.Name)
		}
		args[argDef.Name] = value
	}
	return args, nil
}

// literalToInternal converts a literal argument value, which may contain
// nested variable references, to internal form. The second return reports
// presence: a reference to an unprovided variable yields (nil, false, nil)
// so the argument falls back to its default or absence.
func literalToInternal(st *executionState, v *language.Value, t *language.Type) (any, bool, error) {
	if v.Kind == language.Variable {
		value, ok := st.variables[v.Raw]
		if !ok {
			return nil, false, nil
		}
		if value == nil {
			return nil, true, nil
		}
		// Variables were coerced up front; only list-wrap as needed.
		if isListType(t) {
			if _, isList := value.([]any); !isList {
				return []any{value}, true, nil
			}
		}
		return value, true, nil
	}
	if v.Kind == language.NullValue {
		return nil, true, nil
	}

	if t.NonNull {
		value, present, err := literalToInternal(st, v, &language.Type{NamedType: t.NamedType, Elem: t.Elem})
		if err != nil || !present {
			return nil, present, err
		}
		return value, true, nil
	}

	if isListType(t) {
		if v.Kind != language.ListValue {
			item, present, err := literalToInternal(st, v, t.Elem)
			if err != nil {
				return nil, false, err
			}
			if !present {
				return nil, false, nil
			}
			return []any{item}, true, nil
		}
		out := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			item, present, err := literalToInternal(st, child.Value, t.Elem)
			if err != nil {
				return nil, false, err
			}
			if !present {
				// An absent variable inside a list coerces to a null
				// element rather than failing the whole argument.
				item = nil
			}
			out = append(out, item)
		}
		return out, true, nil
	}

	def := st.exec.schema.TypeDefinition(t.NamedType)
	if def == nil {
		return nil, false, fmt.Errorf("unknown input type %s", t.NamedType)
	}
	switch def.Kind {
	case language.Scalar, language.Enum:
		out, err := st.exec.registry.ParseLiteralLeaf(def, v)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	case language.InputObject:
		out, err := literalToInputObject(st, def, v)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	return nil, false, fmt.Errorf("type %s cannot be used as input", def.Name)
}

func literalToInputObject(st *executionState, def *language.Definition, v *language.Value) (any, error) {
	if v.Kind != language.ObjectValue {
		return nil, fmt.Errorf("expected input object literal of type %s", def.Name)
	}
	byName := map[string]*language.Value{}
	for _, child := range v.Children {
		if def.Fields.ForName(child.Name) == nil {
			return nil, fmt.Errorf("unexpected field %q on input object %s", child.Name, def.Name)
		}
		byName[child.Name] = child.Value
	}
	fields := map[string]any{}
	for _, fd := range def.Fields {
		fv, present := byName[fd.Name]
		if !present {
			if fd.DefaultValue != nil {
				fields[fd.Name] = defaultFromLiteral(fd.DefaultValue)
				continue
			}
			if fd.Type.NonNull {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, fd.Name, fd.Type.String())
			}
			continue
		}
		cv, hasValue, err := literalToInternal(st, fv, fd.Type)
		if err != nil {
			return nil, fmt.Errorf("at field %s: %w", fd.Name, err)
		}
		if !hasValue {
			if fd.DefaultValue != nil {
				fields[fd.Name] = defaultFromLiteral(fd.DefaultValue)
			} else if fd.Type.NonNull {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, fd.Name, fd.Type.String())
			}
			continue
		}
		if cv == nil && fd.Type.NonNull {
			return nil, fmt.Errorf("field %s.%s of non-null type %s must not be null", def.Name, fd.Name, fd.Type.String())
		}
		fields[fd.Name] = cv
	}
	if c, ok := st.exec.registry.Lookup(def.Name); ok {
		out, err := c.Deserialize(fields)
		if err != nil {
			return nil, &coerce.Error{Type: def.Name, Reason: err.Error()}
		}
		return out, nil
	}
	return fields, nil
}

func isListType(t *language.Type) bool {
	return t.Elem != nil && t.NamedType == ""
}
