package introspection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quivergraph/quiver/internal/coerce"
	"github.com/quivergraph/quiver/internal/executor"
	language "github.com/quivergraph/quiver/internal/language"
	"github.com/quivergraph/quiver/internal/schema"
)

const testSDL = `
type Query {
  hero(limit: Int = 5): Character
  old: String @deprecated(reason: "use hero")
}
interface Character { id: ID! }
type Droid implements Character { id: ID!, primaryFunction: String }
enum Episode { NEWHOPE, EMPIRE, JEDI }
input Filter { name: String!, limit: Int = 10 }
`

func introspect(t *testing.T, query string) map[string]any {
	t.Helper()
	sch, err := schema.Load("test.graphql", testSDL)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	ExtendSchema(sch)

	exec := executor.New(executor.Config{
		Schema:    sch,
		Registry:  coerce.NewRegistry(),
		Resolvers: Resolvers(sch),
	})
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	res := exec.Execute(context.Background(), nil, doc, "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	b, err := json.Marshal(res.Data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestIntrospection_SchemaRoots(t *testing.T) {
	data := introspect(t, `{ __schema { queryType { name } mutationType { name } } }`)
	sch := data["__schema"].(map[string]any)
	if got := sch["queryType"].(map[string]any)["name"]; got != "Query" {
		t.Fatalf("queryType: got %v, want Query", got)
	}
	if sch["mutationType"] != nil {
		t.Fatalf("mutationType: got %v, want null", sch["mutationType"])
	}
}

func TestIntrospection_TypeByName(t *testing.T) {
	data := introspect(t, `{
  __type(name: "Droid") {
    kind
    name
    fields { name type { kind name ofType { name } } }
    interfaces { name }
  }
}`)
	typ := data["__type"].(map[string]any)
	if typ["kind"] != "OBJECT" || typ["name"] != "Droid" {
		t.Fatalf("unexpected type header: %v", typ)
	}
	fields := typ["fields"].([]any)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}
	id := fields[0].(map[string]any)
	if id["name"] != "id" {
		t.Fatalf("first field: got %v, want id", id["name"])
	}
	idType := id["type"].(map[string]any)
	if idType["kind"] != "NON_NULL" || idType["name"] != nil {
		t.Fatalf("id type should be a NON_NULL wrapper: %v", idType)
	}
	if idType["ofType"].(map[string]any)["name"] != "ID" {
		t.Fatalf("id ofType: %v", idType["ofType"])
	}
	ifaces := typ["interfaces"].([]any)
	if len(ifaces) != 1 || ifaces[0].(map[string]any)["name"] != "Character" {
		t.Fatalf("interfaces: %v", ifaces)
	}
}

func TestIntrospection_UnknownTypeIsNull(t *testing.T) {
	data := introspect(t, `{ __type(name: "Nope") { name } }`)
	if data["__type"] != nil {
		t.Fatalf("expected null, got %v", data["__type"])
	}
}

func TestIntrospection_EnumAndInputTypes(t *testing.T) {
	data := introspect(t, `{
  ep: __type(name: "Episode") { enumValues { name } }
  fl: __type(name: "Filter") { inputFields { name defaultValue } }
}`)
	evs := data["ep"].(map[string]any)["enumValues"].([]any)
	if len(evs) != 3 || evs[0].(map[string]any)["name"] != "NEWHOPE" {
		t.Fatalf("enumValues: %v", evs)
	}
	infs := data["fl"].(map[string]any)["inputFields"].([]any)
	if len(infs) != 2 {
		t.Fatalf("inputFields: %v", infs)
	}
	limit := infs[1].(map[string]any)
	if limit["name"] != "limit" || limit["defaultValue"] != "10" {
		t.Fatalf("limit input field: %v", limit)
	}
}

func TestIntrospection_Deprecation(t *testing.T) {
	data := introspect(t, `{
  __type(name: "Query") {
    all: fields(includeDeprecated: true) { name isDeprecated deprecationReason }
    active: fields { name }
  }
}`)
	typ := data["__type"].(map[string]any)
	all := typ["all"].([]any)
	if len(all) != 2 {
		t.Fatalf("expected hero and old, got %v", all)
	}
	old := all[1].(map[string]any)
	if old["isDeprecated"] != true || old["deprecationReason"] != "use hero" {
		t.Fatalf("deprecation: %v", old)
	}
	active := typ["active"].([]any)
	if len(active) != 1 {
		t.Fatalf("deprecated field should be hidden by default: %v", active)
	}
}

func TestIntrospection_SchemaTypesIncludeUserTypes(t *testing.T) {
	data := introspect(t, `{ __schema { types { name } } }`)
	names := map[string]bool{}
	for _, tm := range data["__schema"].(map[string]any)["types"].([]any) {
		names[tm.(map[string]any)["name"].(string)] = true
	}
	for _, want := range []string{"Query", "Droid", "Character", "Episode", "Filter", "__Schema", "__Type"} {
		if !names[want] {
			t.Fatalf("missing type %s in %v", want, names)
		}
	}
}
