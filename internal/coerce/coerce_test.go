package coerce

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	language "github.com/quivergraph/quiver/internal/language"
)

func scalarDef(name string) *language.Definition {
	return &language.Definition{Kind: language.Scalar, Name: name}
}

var colorDef = &language.Definition{
	Kind: language.Enum,
	Name: "Color",
	EnumValues: language.EnumValueList{
		{Name: "RED"},
		{Name: "GREEN"},
	},
}

func TestDeserializeLeaf_Builtins(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		typ  string
		in   any
		want any
	}{
		{"Int", 42, 42},
		{"Int", int64(7), 7},
		{"Int", float64(3), 3},
		{"Float", 3, float64(3)},
		{"Float", 1.5, 1.5},
		{"String", "hi", "hi"},
		{"Boolean", true, true},
		{"ID", "abc", "abc"},
		{"ID", 42, "42"},
		{"ID", float64(9), "9"},
	}
	for _, c := range cases {
		got, err := r.DeserializeLeaf(scalarDef(c.typ), c.in)
		if err != nil {
			t.Fatalf("%s(%v): %v", c.typ, c.in, err)
		}
		if got != c.want {
			t.Errorf("%s(%v) = %v (%T), want %v (%T)", c.typ, c.in, got, got, c.want, c.want)
		}
	}
}

func TestDeserializeLeaf_BuiltinRejections(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		typ string
		in  any
	}{
		{"Int", 3.5},
		{"Int", int64(1) << 40},
		{"Int", "12"},
		{"Float", "1.5"},
		{"String", 12},
		{"Boolean", "true"},
		{"ID", 1.5},
	}
	for _, c := range cases {
		if _, err := r.DeserializeLeaf(scalarDef(c.typ), c.in); err == nil {
			t.Errorf("%s(%v): expected error", c.typ, c.in)
		}
	}
}

func TestEnumFallback(t *testing.T) {
	r := NewRegistry()

	got, err := r.SerializeLeaf(colorDef, "RED")
	if err != nil || got != "RED" {
		t.Fatalf("serialize RED = %v, %v", got, err)
	}
	if _, err := r.SerializeLeaf(colorDef, "BLUE"); err == nil {
		t.Fatal("expected error for undeclared enum value")
	}
	if _, err := r.DeserializeLeaf(colorDef, 1); err == nil {
		t.Fatal("expected error for non-string enum value")
	}

	got, err = r.ParseLiteralLeaf(colorDef, &language.Value{Kind: language.EnumValue, Raw: "GREEN"})
	if err != nil || got != "GREEN" {
		t.Fatalf("parse GREEN = %v, %v", got, err)
	}
	if _, err := r.ParseLiteralLeaf(colorDef, &language.Value{Kind: language.StringValue, Raw: "GREEN"}); err == nil {
		t.Fatal("expected error for string literal on enum")
	}
}

func TestParseLiteralLeaf_Builtins(t *testing.T) {
	r := NewRegistry()

	got, err := r.ParseLiteralLeaf(scalarDef("Int"), &language.Value{Kind: language.IntValue, Raw: "12"})
	if err != nil || got != 12 {
		t.Fatalf("Int 12 = %v, %v", got, err)
	}
	if _, err := r.ParseLiteralLeaf(scalarDef("Int"), &language.Value{Kind: language.IntValue, Raw: "4294967296"}); err == nil {
		t.Fatal("expected range error")
	}

	got, err = r.ParseLiteralLeaf(scalarDef("Float"), &language.Value{Kind: language.IntValue, Raw: "2"})
	if err != nil || got != float64(2) {
		t.Fatalf("Float 2 = %v, %v", got, err)
	}

	got, err = r.ParseLiteralLeaf(scalarDef("ID"), &language.Value{Kind: language.IntValue, Raw: "99"})
	if err != nil || got != "99" {
		t.Fatalf("ID 99 = %v, %v", got, err)
	}

	if _, err := r.ParseLiteralLeaf(scalarDef("Boolean"), &language.Value{Kind: language.IntValue, Raw: "1"}); err == nil {
		t.Fatal("expected error for integer literal on Boolean")
	}
}

type upperCoercing struct{}

func (upperCoercing) Serialize(internal any) (any, error) {
	s, ok := internal.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", internal)
	}
	return strings.ToUpper(s), nil
}

func (upperCoercing) Deserialize(external any) (any, error) {
	s, ok := external.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", external)
	}
	return strings.ToLower(s), nil
}

func (upperCoercing) ParseLiteral(v *language.Value) (any, error) {
	if v.Kind != language.StringValue {
		return nil, fmt.Errorf("expected string literal")
	}
	return strings.ToLower(v.Raw), nil
}

func TestRegisteredCoercing(t *testing.T) {
	r := NewRegistry()
	r.Register("Shout", upperCoercing{})
	def := scalarDef("Shout")

	got, err := r.SerializeLeaf(def, "quiet")
	if err != nil || got != "QUIET" {
		t.Fatalf("serialize = %v, %v", got, err)
	}
	got, err = r.DeserializeLeaf(def, "LOUD")
	if err != nil || got != "loud" {
		t.Fatalf("deserialize = %v, %v", got, err)
	}

	_, err = r.SerializeLeaf(def, 7)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Type != "Shout" {
		t.Fatalf("expected coercion error tagged Shout, got %v", err)
	}
}

func TestUnregisteredCustomScalarIsConfigError(t *testing.T) {
	r := NewRegistry()
	_, err := r.SerializeLeaf(scalarDef("DateTime"), "2024-01-01")
	var cfg *ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRegistryTypeNames(t *testing.T) {
	r := NewRegistry()
	r.Register("Zed", upperCoercing{})
	r.Register("Alpha", upperCoercing{})
	names := r.TypeNames()
	if len(names) != 2 || names[0] != "Alpha" || names[1] != "Zed" {
		t.Fatalf("TypeNames = %v", names)
	}
}
