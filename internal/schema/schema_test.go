package schema

import (
	"sort"
	"testing"

	language "github.com/quivergraph/quiver/internal/language"
)

const testSDL = `
type Query { node(id: ID!): Node }
type Mutation { touch: Boolean }

interface Node { id: ID! }
type User implements Node { id: ID!, name: String }
type Post implements Node { id: ID!, title: String }
union Searchable = User | Post
`

func load(t *testing.T) *Schema {
	t.Helper()
	s, err := Load("test.graphql", testSDL)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadRejectsInvalidSDL(t *testing.T) {
	if _, err := Load("bad.graphql", `type Query { f: Missing }`); err == nil {
		t.Fatal("expected error for undefined type reference")
	}
}

func TestRootTypeNameFor(t *testing.T) {
	s := load(t)
	if got := s.RootTypeNameFor(language.Query); got != "Query" {
		t.Fatalf("query root = %q", got)
	}
	if got := s.RootTypeNameFor(language.Mutation); got != "Mutation" {
		t.Fatalf("mutation root = %q", got)
	}
	if got := s.RootTypeNameFor(language.Subscription); got != "" {
		t.Fatalf("subscription root = %q, want empty", got)
	}
}

func TestPossibleTypes(t *testing.T) {
	s := load(t)

	if got := s.PossibleTypes("User"); len(got) != 1 || got[0] != "User" {
		t.Fatalf("PossibleTypes(User) = %v", got)
	}
	for _, abstract := range []string{"Node", "Searchable"} {
		got := s.PossibleTypes(abstract)
		sort.Strings(got)
		if len(got) != 2 || got[0] != "Post" || got[1] != "User" {
			t.Fatalf("PossibleTypes(%s) = %v", abstract, got)
		}
	}
	if got := s.PossibleTypes("Nope"); got != nil {
		t.Fatalf("PossibleTypes(Nope) = %v", got)
	}
}

func TestIsPossibleType(t *testing.T) {
	s := load(t)
	if !s.IsPossibleType("Node", "User") {
		t.Fatal("User should satisfy Node")
	}
	if !s.IsPossibleType("User", "User") {
		t.Fatal("a type satisfies itself")
	}
	if s.IsPossibleType("Searchable", "Query") {
		t.Fatal("Query is not a Searchable member")
	}
}

func TestFieldDefinition(t *testing.T) {
	s := load(t)
	fd := s.FieldDefinition("User", "name")
	if fd == nil || language.NamedTypeOf(fd.Type) != "String" {
		t.Fatalf("User.name = %+v", fd)
	}
	if s.FieldDefinition("User", "missing") != nil {
		t.Fatal("expected nil for unknown field")
	}
	if s.FieldDefinition("Missing", "name") != nil {
		t.Fatal("expected nil for unknown type")
	}
}
