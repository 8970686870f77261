package schema

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/quivergraph/quiver/internal/language"
)

// Schema answers the type-system questions the executor needs: looking up
// named type definitions, enumerating possible runtime types of abstract
// types, and mapping operation types to their root type names.
//
// It wraps a validated gqlparser schema; the wrapper is immutable after Load
// and safe for unsynchronized concurrent reads.
type Schema struct {
	ast *ast.Schema
}

// Load parses and validates an SDL source into a Schema.
func Load(name, sdl string) (*Schema, error) {
	sch, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return &Schema{ast: sch}, nil
}

// FromAST wraps an already-built gqlparser schema.
func FromAST(sch *ast.Schema) *Schema { return &Schema{ast: sch} }

// AST exposes the underlying gqlparser schema for validation.
func (s *Schema) AST() *ast.Schema { return s.ast }

// TypeDefinition returns the definition of a named type, or nil.
func (s *Schema) TypeDefinition(name string) *language.Definition {
	return s.ast.Types[name]
}

// RootTypeNameFor returns the root type name for an operation type, or ""
// when the schema does not define that root.
func (s *Schema) RootTypeNameFor(op language.Operation) string {
	var def *language.Definition
	switch op {
	case language.Query:
		def = s.ast.Query
	case language.Mutation:
		def = s.ast.Mutation
	case language.Subscription:
		def = s.ast.Subscription
	}
	if def == nil {
		return ""
	}
	return def.Name
}

// PossibleTypes returns the names of the concrete object types a named type
// can resolve to at runtime. For object types this is the type itself; for
// interfaces and unions it is the set of implementing/member object types.
func (s *Schema) PossibleTypes(name string) []string {
	def := s.ast.Types[name]
	if def == nil {
		return nil
	}
	if def.Kind == language.Object {
		return []string{def.Name}
	}
	possible := s.ast.PossibleTypes[name]
	out := make([]string, 0, len(possible))
	for _, pt := range possible {
		out = append(out, pt.Name)
	}
	return out
}

// IsPossibleType reports whether runtime object type typeName satisfies the
// type condition cond.
func (s *Schema) IsPossibleType(cond, typeName string) bool {
	if cond == typeName {
		return true
	}
	for _, pt := range s.PossibleTypes(cond) {
		if pt == typeName {
			return true
		}
	}
	return false
}

// FieldDefinition returns the definition of a field on a named type, or nil.
func (s *Schema) FieldDefinition(typeName, fieldName string) *language.FieldDefinition {
	def := s.ast.Types[typeName]
	if def == nil {
		return nil
	}
	return def.Fields.ForName(fieldName)
}
