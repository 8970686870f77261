// Package introspection serves the __schema and __type meta fields from a
// loaded schema. It plugs into the executor as a plain resolver map, so
// introspection selections execute exactly like user fields.
package introspection

import (
	"context"
	"sort"

	"github.com/quivergraph/quiver/internal/executor"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

// ExtendSchema appends the __schema and __type root fields to the query
// type. The introspection type definitions themselves ship with the schema
// loader's prelude. Idempotent.
func ExtendSchema(s *schema.Schema) {
	q := s.AST().Query
	if q == nil {
		return
	}
	if q.Fields.ForName("__schema") == nil {
		q.Fields = append(q.Fields, &language.FieldDefinition{
			Name:        "__schema",
			Description: "Access the current type schema of this server.",
			Type:        &language.Type{NamedType: "__Schema", NonNull: true},
		})
	}
	if q.Fields.ForName("__type") == nil {
		q.Fields = append(q.Fields, &language.FieldDefinition{
			Name:        "__type",
			Description: "Request the type information of a single type.",
			Arguments: language.ArgumentDefinitionList{{
				Name: "name",
				Type: &language.Type{NamedType: "String", NonNull: true},
			}},
			Type: &language.Type{NamedType: "__Type"},
		})
	}
}

// Resolvers returns the resolver map entries for every introspection field.
func Resolvers(sch *schema.Schema) map[string]executor.ResolveFunc {
	queryType := sch.RootTypeNameFor(language.Query)
	r := map[string]executor.ResolveFunc{}

	r[queryType+".__schema"] = func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		return sch, nil
	}
	r[queryType+".__type"] = func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		name, _ := info.Args["name"].(string)
		ref := namedTypeRef(sch, sch.TypeDefinition(name))
		if ref == nil {
			return nil, nil
		}
		return ref, nil
	}

	schemaResolvers(sch, r)
	typeResolvers(r)
	memberResolvers(sch, r)
	return r
}

func schemaResolvers(sch *schema.Schema, r map[string]executor.ResolveFunc) {
	r["__Schema.description"] = func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		if d := sch.AST().Description; d != "" {
			return d, nil
		}
		return nil, nil
	}
	r["__Schema.types"] = func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		names := make([]string, 0, len(sch.AST().Types))
		for name := range sch.AST().Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]any, 0, len(names))
		for _, name := range names {
			out = append(out, namedTypeRef(sch, sch.TypeDefinition(name)))
		}
		return out, nil
	}
	rootField := func(root func() *language.Definition) executor.ResolveFunc {
		return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
			def := root()
			if def == nil {
				return nil, nil
			}
			return namedTypeRef(sch, def), nil
		}
	}
	r["__Schema.queryType"] = rootField(func() *language.Definition { return sch.AST().Query })
	r["__Schema.mutationType"] = rootField(func() *language.Definition { return sch.AST().Mutation })
	r["__Schema.subscriptionType"] = rootField(func() *language.Definition { return sch.AST().Subscription })
	r["__Schema.directives"] = func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		names := make([]string, 0, len(sch.AST().Directives))
		for name := range sch.AST().Directives {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]any, 0, len(names))
		for _, name := range names {
			out = append(out, sch.AST().Directives[name])
		}
		return out, nil
	}
}

func typeResolvers(r map[string]executor.ResolveFunc) {
	onType := func(resolve func(ref *typeRef, info *executor.ResolveInfo) any) executor.ResolveFunc {
		return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
			ref, ok := info.Source.(*typeRef)
			if !ok {
				return nil, nil
			}
			return resolve(ref, info), nil
		}
	}
	includeDeprecated := func(info *executor.ResolveInfo) bool {
		b, _ := info.Args["includeDeprecated"].(bool)
		return b
	}

	r["__Type.kind"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.kind })
	r["__Type.name"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.name() })
	r["__Type.description"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.description() })
	r["__Type.fields"] = onType(func(ref *typeRef, info *executor.ResolveInfo) any {
		return ref.fields(includeDeprecated(info))
	})
	r["__Type.interfaces"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.interfaces() })
	r["__Type.possibleTypes"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.possibleTypes() })
	r["__Type.enumValues"] = onType(func(ref *typeRef, info *executor.ResolveInfo) any {
		return ref.enumValues(includeDeprecated(info))
	})
	r["__Type.inputFields"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.inputFields() })
	r["__Type.ofType"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return ref.ofType() })
	r["__Type.specifiedByURL"] = onType(func(ref *typeRef, _ *executor.ResolveInfo) any { return nil })
}

func memberResolvers(sch *schema.Schema, r map[string]executor.ResolveFunc) {
	r["__Field.name"] = onField(func(fd *language.FieldDefinition) any { return fd.Name })
	r["__Field.description"] = onField(func(fd *language.FieldDefinition) any {
		return emptyAsNil(fd.Description)
	})
	r["__Field.args"] = onField(func(fd *language.FieldDefinition) any {
		return argInputValues(fd.Arguments)
	})
	r["__Field.type"] = onField(func(fd *language.FieldDefinition) any {
		return typeRefFromAST(sch, fd.Type)
	})
	r["__Field.isDeprecated"] = onField(func(fd *language.FieldDefinition) any {
		deprecated, _ := deprecationOf(fd.Directives)
		return deprecated
	})
	r["__Field.deprecationReason"] = onField(func(fd *language.FieldDefinition) any {
		_, reason := deprecationOf(fd.Directives)
		return reason
	})

	r["__InputValue.name"] = onInputValue(func(iv inputValue) any { return iv.Name })
	r["__InputValue.description"] = onInputValue(func(iv inputValue) any { return emptyAsNil(iv.Description) })
	r["__InputValue.type"] = onInputValue(func(iv inputValue) any { return typeRefFromAST(sch, iv.Type) })
	r["__InputValue.defaultValue"] = onInputValue(func(iv inputValue) any {
		if iv.Default == nil {
			return nil
		}
		return iv.Default.String()
	})

	r["__EnumValue.name"] = onEnumValue(func(ev *language.EnumValueDefinition) any { return ev.Name })
	r["__EnumValue.description"] = onEnumValue(func(ev *language.EnumValueDefinition) any {
		return emptyAsNil(ev.Description)
	})
	r["__EnumValue.isDeprecated"] = onEnumValue(func(ev *language.EnumValueDefinition) any {
		deprecated, _ := deprecationOf(ev.Directives)
		return deprecated
	})
	r["__EnumValue.deprecationReason"] = onEnumValue(func(ev *language.EnumValueDefinition) any {
		_, reason := deprecationOf(ev.Directives)
		return reason
	})

	r["__Directive.name"] = onDirective(func(dd *language.DirectiveDefinition) any { return dd.Name })
	r["__Directive.description"] = onDirective(func(dd *language.DirectiveDefinition) any {
		return emptyAsNil(dd.Description)
	})
	r["__Directive.locations"] = onDirective(func(dd *language.DirectiveDefinition) any {
		out := make([]any, 0, len(dd.Locations))
		for _, loc := range dd.Locations {
			out = append(out, string(loc))
		}
		return out
	})
	r["__Directive.args"] = onDirective(func(dd *language.DirectiveDefinition) any {
		return argInputValues(dd.Arguments)
	})
	r["__Directive.isRepeatable"] = onDirective(func(dd *language.DirectiveDefinition) any {
		return dd.IsRepeatable
	})
}

func onField(resolve func(fd *language.FieldDefinition) any) executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		fd, ok := info.Source.(*language.FieldDefinition)
		if !ok {
			return nil, nil
		}
		return resolve(fd), nil
	}
}

func onInputValue(resolve func(iv inputValue) any) executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		iv, ok := info.Source.(inputValue)
		if !ok {
			return nil, nil
		}
		return resolve(iv), nil
	}
}

func onEnumValue(resolve func(ev *language.EnumValueDefinition) any) executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		ev, ok := info.Source.(*language.EnumValueDefinition)
		if !ok {
			return nil, nil
		}
		return resolve(ev), nil
	}
}

func onDirective(resolve func(dd *language.DirectiveDefinition) any) executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		dd, ok := info.Source.(*language.DirectiveDefinition)
		if !ok {
			return nil, nil
		}
		return resolve(dd), nil
	}
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
