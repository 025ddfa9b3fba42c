package settings

import (
	"errors"
	"reflect"
	"testing"
)

func TestFunctionRegistryRegister(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Twice", twice); err != nil {
		t.Fatalf("register: %v", err)
	}
	cases := []struct {
		name string
		fn   Function
	}{
		{name: "twice", fn: twice},
		{name: "", fn: twice},
		{name: "two words", fn: twice},
		{name: "9lives", fn: twice},
		{name: "ok", fn: nil},
	}
	for _, tc := range cases {
		if err := registry.Register(tc.name, tc.fn); !errors.Is(err, ErrFunction) {
			t.Fatalf("Register(%q): expected ErrFunction, got %v", tc.name, err)
		}
	}
	if got := registry.Names(); !reflect.DeepEqual(got, []string{"twice"}) {
		t.Fatalf("expected lower case names, got %v", got)
	}
	result, err := registry.Call("TWICE", 21)
	if err != nil || result != 42 {
		t.Fatalf("expected case insensitive call, got %v %v", result, err)
	}
	if _, err := registry.Call("thrice", 1); !errors.Is(err, ErrFunction) {
		t.Fatalf("expected unknown function error, got %v", err)
	}
	var nilRegistry *FunctionRegistry
	if _, err := nilRegistry.Call("twice", 1); !errors.Is(err, ErrFunction) {
		t.Fatalf("expected nil registry error, got %v", err)
	}
}

func TestFunctionRegistryMergeKeepsExisting(t *testing.T) {
	base := NewFunctionRegistry()
	if err := base.Register("pick", func(...any) (any, error) { return "base", nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	other := StandardFunctions()
	if err := other.Register("pick", func(...any) (any, error) { return "other", nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	base.Merge(other)
	if got, _ := base.Call("pick"); got != "base" {
		t.Fatalf("expected existing helper kept, got %v", got)
	}
	want := []string{"between", "matches", "oneof", "pick"}
	if got := base.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	clone := base.Clone()
	if err := clone.Register("extra", twice); err != nil {
		t.Fatalf("register on clone: %v", err)
	}
	if len(base.Names()) != 4 {
		t.Fatalf("clone registrations leaked into the source: %v", base.Names())
	}
}

func TestStandardFunctions(t *testing.T) {
	registry := StandardFunctions()
	cases := []struct {
		name string
		args []any
		want any
	}{
		{name: "oneof", args: []any{"exr", "png", "exr"}, want: true},
		{name: "oneof", args: []any{int64(24), 24.0, 25}, want: true},
		{name: "oneof", args: []any{"tif", []any{"png", "exr"}}, want: false},
		{name: "matches", args: []any{"shot_010", `^shot_\d+$`}, want: true},
		{name: "matches", args: []any{42, `\d+`}, want: false},
		{name: "between", args: []any{24, 1, 120}, want: true},
		{name: "between", args: []any{0.5, 1, 120}, want: false},
	}
	for _, tc := range cases {
		got, err := registry.Call(tc.name, tc.args...)
		if err != nil {
			t.Fatalf("%s%v: %v", tc.name, tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%s%v = %v, want %v", tc.name, tc.args, got, tc.want)
		}
	}

	failures := []struct {
		name string
		args []any
	}{
		{name: "oneof", args: []any{"only"}},
		{name: "matches", args: []any{"x", 1}},
		{name: "matches", args: []any{"x", "("}},
		{name: "between", args: []any{"24", 1, 120}},
		{name: "between", args: []any{24}},
	}
	for _, tc := range failures {
		if _, err := registry.Call(tc.name, tc.args...); err == nil {
			t.Fatalf("%s%v: expected error", tc.name, tc.args)
		}
	}
}

func TestWithCustomFunctionRejectedByBuild(t *testing.T) {
	_, err := Build(ruleSchema(""), nil,
		WithCustomFunction("twice", twice),
		WithCustomFunction("Twice", twice),
	)
	if !errors.Is(err, ErrFunction) {
		t.Fatalf("expected duplicate helper to fail the build, got %v", err)
	}
}

func TestStandardFunctionsInRules(t *testing.T) {
	tree := mustBuild(t, ruleSchema("between(value, 1, 64) && !oneof(value, 13, 666)"), nil,
		WithFunctionRegistry(StandardFunctions()),
		WithCustomFunction("twice", twice),
	)
	mustSet(t, tree, "render.quality", 13)
	if !mustLookup(t, tree, "render.quality").IsInvalid() {
		t.Fatalf("expected 13 to be rejected")
	}
	mustSet(t, tree, "render.samples", 80)
	if !mustLookup(t, tree, "render.samples").IsInvalid() {
		t.Fatalf("expected 80 to be out of range")
	}
	mustSet(t, tree, "render.samples", 32)
	if mustLookup(t, tree, "render.samples").IsInvalid() {
		t.Fatalf("expected 32 to pass")
	}
	if result, err := tree.Evaluate(RuleContext{Value: 5}, "twice(value)"); err != nil || result != 10 {
		t.Fatalf("expected custom helper kept alongside the standard set, got %v %v", result, err)
	}
}
