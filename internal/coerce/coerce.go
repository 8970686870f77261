// Package coerce implements leaf-value coercion between wire values,
// internal values, and literal AST values.
//
// Built-in scalars (Int, Float, String, Boolean, ID) are hard-coded fast
// paths. Every other named leaf type goes through a Coercing registered for
// it; enums without a registered Coercing fall back to identity coercion
// validated against the declared enum value set.
package coerce

import (
	"fmt"
	"sort"

	language "github.com/quivergraph/quiver/internal/language"
)

// Coercing converts values of a single named scalar, enum, or input object
// type between the three GraphQL value spaces.
//
// All three operations must be pure. Serialize maps an internal value to a
// wire-shaped value, Deserialize maps a wire value to the internal
// representation, and ParseLiteral maps a literal AST value node to the
// internal representation.
type Coercing interface {
	Serialize(internal any) (any, error)
	Deserialize(external any) (any, error)
	ParseLiteral(value *language.Value) (any, error)
}

// Registry maps type names to their Coercing. A Registry is built once and
// read-only afterwards; concurrent reads need no synchronization.
type Registry struct {
	coercers map[string]Coercing
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{coercers: map[string]Coercing{}}
}

// Register binds a Coercing to a type name, replacing any previous binding.
func (r *Registry) Register(typeName string, c Coercing) {
	r.coercers[typeName] = c
}

// Lookup returns the Coercing registered for typeName.
func (r *Registry) Lookup(typeName string) (Coercing, bool) {
	c, ok := r.coercers[typeName]
	return c, ok
}

// TypeNames returns the registered type names in sorted order.
func (r *Registry) TypeNames() []string {
	names := make([]string, 0, len(r.coercers))
	for name := range r.coercers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SerializeLeaf converts an internal leaf value of the given type definition
// to its wire representation.
func (r *Registry) SerializeLeaf(def *language.Definition, value any) (any, error) {
	if IsBuiltinScalar(def.Name) {
		return serializeBuiltin(def.Name, value)
	}
	if c, ok := r.Lookup(def.Name); ok {
		out, err := c.Serialize(value)
		if err != nil {
			return nil, &Error{Type: def.Name, Reason: err.Error()}
		}
		return out, nil
	}
	if def.Kind == language.Enum {
		return serializeEnum(def, value)
	}
	return nil, &ConfigError{Type: def.Name}
}

// DeserializeLeaf converts a wire leaf value of the given type definition to
// its internal representation.
func (r *Registry) DeserializeLeaf(def *language.Definition, value any) (any, error) {
	if IsBuiltinScalar(def.Name) {
		return deserializeBuiltin(def.Name, value)
	}
	if c, ok := r.Lookup(def.Name); ok {
		out, err := c.Deserialize(value)
		if err != nil {
			return nil, &Error{Type: def.Name, Reason: err.Error()}
		}
		return out, nil
	}
	if def.Kind == language.Enum {
		return deserializeEnum(def, value)
	}
	return nil, &ConfigError{Type: def.Name}
}

// ParseLiteralLeaf converts a literal AST value of the given type definition
// to its internal representation.
func (r *Registry) ParseLiteralLeaf(def *language.Definition, v *language.Value) (any, error) {
	if IsBuiltinScalar(def.Name) {
		return parseBuiltinLiteral(def.Name, v)
	}
	if c, ok := r.Lookup(def.Name); ok {
		out, err := c.ParseLiteral(v)
		if err != nil {
			return nil, &Error{Type: def.Name, Reason: err.Error()}
		}
		return out, nil
	}
	if def.Kind == language.Enum {
		return parseEnumLiteral(def, v)
	}
	return nil, &ConfigError{Type: def.Name}
}

func serializeEnum(def *language.Definition, value any) (any, error) {
	name, ok := value.(string)
	if !ok {
		return nil, &Error{Type: def.Name, Reason: fmt.Sprintf("expected enum value name, got %T", value)}
	}
	if def.EnumValues.ForName(name) == nil {
		return nil, &Error{Type: def.Name, Reason: fmt.Sprintf("%q is not a value of enum", name)}
	}
	return name, nil
}

func deserializeEnum(def *language.Definition, value any) (any, error) {
	return serializeEnum(def, value)
}

func parseEnumLiteral(def *language.Definition, v *language.Value) (any, error) {
	if v.Kind != language.EnumValue {
		return nil, &Error{Type: def.Name, Reason: "enum literals must be enum value names"}
	}
	if def.EnumValues.ForName(v.Raw) == nil {
		return nil, &Error{Type: def.Name, Reason: fmt.Sprintf("%q is not a value of enum", v.Raw)}
	}
	return v.Raw, nil
}
