package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/quivergraph/quiver/internal/coerce"
	language "github.com/quivergraph/quiver/internal/language"
)

const argsSDL = `
type Query {
  echo(msg: String = "hi", n: Int): String
  sum(nums: [Int!]): Int
  find(filter: Filter): String
}
input Filter {
  name: String!
  limit: Int = 10
}
`

func echoExecutor(t *testing.T, got *map[string]any) *Executor {
	t.Helper()
	capture := func(ctx context.Context, info *ResolveInfo) (any, error) {
		*got = info.Args
		return "ok", nil
	}
	captureInt := func(ctx context.Context, info *ResolveInfo) (any, error) {
		*got = info.Args
		return 0, nil
	}
	return newTestExecutor(t, argsSDL, map[string]ResolveFunc{
		"Query.echo": capture,
		"Query.sum":  captureInt,
		"Query.find": capture,
	})
}

func TestArguments_LiteralsAndDefaults(t *testing.T) {
	var got map[string]any
	exec := echoExecutor(t, &got)

	res := exec.Execute(context.Background(), nil, mustParseQuery(t, `{ echo(n: 3) }`), "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := map[string]any{"msg": "hi", "n": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_VariableReference(t *testing.T) {
	var got map[string]any
	exec := echoExecutor(t, &got)
	doc := mustParseQuery(t, `query ($m: String) { echo(msg: $m) }`)

	res := exec.Execute(context.Background(), nil, doc, "", map[string]any{"m": "yo"}, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := map[string]any{"msg": "yo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	// Absent nullable variable: the argument falls back to its default
	// instead of becoming an explicit null.
	res = exec.Execute(context.Background(), nil, doc, "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want = map[string]any{"msg": "hi"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_SingleValueWrapsAsList(t *testing.T) {
	var got map[string]any
	exec := echoExecutor(t, &got)

	res := exec.Execute(context.Background(), nil, mustParseQuery(t, `{ sum(nums: 4) }`), "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := map[string]any{"nums": []any{4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_AbsentVariableInListIsNull(t *testing.T) {
	var got map[string]any
	exec := echoExecutor(t, &got)
	doc := mustParseQuery(t, `query ($x: Int) { sum(nums: [1, $x, 3]) }`)

	res := exec.Execute(context.Background(), nil, doc, "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := map[string]any{"nums": []any{1, nil, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_InputObjectDefaults(t *testing.T) {
	var got map[string]any
	exec := echoExecutor(t, &got)

	res := exec.Execute(context.Background(), nil,
		mustParseQuery(t, `{ find(filter: {name: "ada"}) }`), "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := map[string]any{"filter": map[string]any{"name": "ada", "limit": 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestArguments_CoercionFailureAbortsOperation(t *testing.T) {
	exec := newTestExecutor(t, argsSDL, map[string]ResolveFunc{
		"Query.echo": valueResolver("ok"),
		"Query.sum":  valueResolver(0),
	})
	doc := mustParseQuery(t, `{ echo(msg: "fine") sum(nums: ["nope"]) }`)

	res := exec.Execute(context.Background(), nil, doc, "", nil, nil)

	if res.Data != nil {
		t.Fatalf("expected nil data, got %s", dataJSON(t, res))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected a single top-level error, got %v", res.Errors)
	}
}

func TestVariables_RequiredMissing(t *testing.T) {
	exec := newTestExecutor(t, argsSDL, map[string]ResolveFunc{
		"Query.echo": valueResolver("ok"),
	})
	doc := mustParseQuery(t, `query ($m: String!) { echo(msg: $m) }`)

	res := exec.Execute(context.Background(), nil, doc, "", nil, nil)

	if res.Executed {
		t.Fatal("expected request to fail before execution")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected a single error, got %v", res.Errors)
	}
}

func TestVariables_DefaultBypassesCoercers(t *testing.T) {
	sdl := `
scalar Upper
type Query { shout(word: Upper = "quiet"): String }
`
	reg := coerce.NewRegistry()
	reg.Register("Upper", upperCoercing{})

	var got map[string]any
	exec := New(Config{
		Schema:   mustLoadSchema(t, sdl),
		Registry: reg,
		Resolvers: map[string]ResolveFunc{
			"Query.shout": func(ctx context.Context, info *ResolveInfo) (any, error) {
				got = info.Args
				return "ok", nil
			},
		},
	})

	// A provided literal goes through the coercer; the default takes
	// effect exactly as authored.
	res := exec.Execute(context.Background(), nil, mustParseQuery(t, `{ shout(word: "loud") }`), "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if diff := cmp.Diff(map[string]any{"word": "LOUD"}, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	res = exec.Execute(context.Background(), nil, mustParseQuery(t, `{ shout }`), "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if diff := cmp.Diff(map[string]any{"word": "quiet"}, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

type upperCoercing struct{}

func (upperCoercing) Serialize(internal any) (any, error) { return internal, nil }

func (upperCoercing) Deserialize(external any) (any, error) {
	s, ok := external.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", external)
	}
	return upper(s), nil
}

func (upperCoercing) ParseLiteral(v *language.Value) (any, error) {
	if v.Kind != language.StringValue {
		return nil, fmt.Errorf("expected string literal")
	}
	return upper(v.Raw), nil
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 32
		}
	}
	return string(out)
}
