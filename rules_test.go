package settings

import (
	"errors"
	"fmt"
	"testing"
)

func ruleSchema(validate string) Descriptor {
	return leafSchema(Descriptor{Type: "dict", Key: "render", Children: []Descriptor{
		{Type: "integer", Key: "quality", Default: 10, Validate: validate},
		{Type: "integer", Key: "samples", Default: 4, Validate: validate},
	}})
}

func twice(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("twice expects one argument")
	}
	switch v := args[0].(type) {
	case int:
		return v * 2, nil
	case int64:
		return v * 2, nil
	case float64:
		return v * 2, nil
	default:
		return nil, fmt.Errorf("twice: unsupported %T", v)
	}
}

func TestValidationRuleMarksNodeInvalid(t *testing.T) {
	engines := []struct {
		name      string
		evaluator Evaluator
	}{
		{name: "expr", evaluator: NewExprEvaluator()},
		{name: "cel", evaluator: NewCELEvaluator()},
	}
	for _, engine := range engines {
		engine := engine
		t.Run(engine.name, func(t *testing.T) {
			tree := mustBuild(t, ruleSchema("value >= 0"), nil, WithEvaluator(engine.evaluator))
			node := mustLookup(t, tree, "render.quality")
			if node.IsInvalid() {
				t.Fatalf("expected default value to pass the rule")
			}
			mustSet(t, tree, "render.quality", -3)
			if !node.IsInvalid() || !tree.Invalid() {
				t.Fatalf("expected negative value to be rejected")
			}
			mustSet(t, tree, "render.quality", 3)
			if node.IsInvalid() {
				t.Fatalf("expected valid value to clear the flag")
			}
		})
	}
}

func TestValidationRuleCallsCustomFunction(t *testing.T) {
	engines := map[string]func(*FunctionRegistry) Evaluator{
		"expr": func(r *FunctionRegistry) Evaluator { return NewExprEvaluator(ExprWithFunctionRegistry(r)) },
		"cel":  func(r *FunctionRegistry) Evaluator { return NewCELEvaluator(CELWithFunctionRegistry(r)) },
	}
	for name, factory := range engines {
		factory := factory
		t.Run(name, func(t *testing.T) {
			registry := NewFunctionRegistry()
			if err := registry.Register("Twice", twice); err != nil {
				t.Fatalf("register: %v", err)
			}
			tree := mustBuild(t, ruleSchema("twice(value) <= 100"), nil, WithEvaluator(factory(registry)))
			mustSet(t, tree, "render.samples", 60)
			if !mustLookup(t, tree, "render.samples").IsInvalid() {
				t.Fatalf("expected rule using custom function to reject 60")
			}
			mustSet(t, tree, "render.samples", 50)
			if mustLookup(t, tree, "render.samples").IsInvalid() {
				t.Fatalf("expected rule using custom function to accept 50")
			}
		})
	}
}

func TestDefaultEvaluatorUsesConfiguredFunctionsAndCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	tree := mustBuild(t, ruleSchema("twice(value) < 50"), nil,
		WithCustomFunction("twice", twice),
		WithProgramCache(cache),
	)
	if cache.Len() != 1 {
		t.Fatalf("expected rule shared by two nodes to compile once, got %d programs", cache.Len())
	}
	mustSet(t, tree, "render.quality", 30)
	if !mustLookup(t, tree, "render.quality").IsInvalid() {
		t.Fatalf("expected 30 to be rejected")
	}

	result, err := tree.Evaluate(RuleContext{Value: 4}, "twice(value) < 50")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected evaluate to reuse the cached program, got %d", cache.Len())
	}
}

func TestRuleLoggerReceivesEvaluations(t *testing.T) {
	var events []RuleLogEvent
	tree := mustBuild(t, ruleSchema("value < 20"), nil, WithRuleLogger(RuleLoggerFunc(func(event RuleLogEvent) {
		events = append(events, event)
	})))
	events = nil

	mustSet(t, tree, "render.quality", 25)
	if len(events) != 1 {
		t.Fatalf("expected one rule event, got %d", len(events))
	}
	event := events[0]
	if event.Engine != "expr" || event.Expr != "value < 20" || event.Path != "render.quality" {
		t.Fatalf("unexpected rule event %+v", event)
	}
	if event.Passed || event.Err != nil {
		t.Fatalf("expected failed evaluation without error, got %+v", event)
	}
}

func TestRuleCompileErrorFailsBuild(t *testing.T) {
	_, err := Build(ruleSchema("value >="), nil)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError, got %v", err)
	}
	if ruleErr.Engine != "expr" || ruleErr.Expr != "value >=" || ruleErr.Phase != RuleCompile {
		t.Fatalf("unexpected rule error metadata %+v", ruleErr)
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Path.String() != "render.quality" {
		t.Fatalf("expected schema error at render.quality, got %v", err)
	}
}

func TestEvaluatorByName(t *testing.T) {
	for _, engine := range []string{"", "expr", "cel"} {
		evaluator, err := EvaluatorByName(engine, nil, nil)
		if err != nil || evaluator == nil {
			t.Fatalf("%q: expected evaluator, got %v", engine, err)
		}
	}
	if _, err := EvaluatorByName("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected unknown engine to fail with ErrNoEvaluator, got %v", err)
	}
	for _, engine := range Engines() {
		evaluator, err := EvaluatorByName(engine, nil, nil)
		if err != nil {
			t.Fatalf("%q: listed engine failed: %v", engine, err)
		}
		if got := evaluatorEngineName(evaluator); got != engine {
			t.Fatalf("expected engine name %q, got %q", engine, got)
		}
	}
	if _, err := EvaluatorByName("js", nil, nil); jsEvaluatorAvailable() == (err != nil) {
		t.Fatalf("js engine availability mismatch: %v", err)
	}
}

func TestTreeEvaluateRejectsEmptyExpression(t *testing.T) {
	tree := mustBuild(t, ruleSchema(""), nil)
	if _, err := tree.Evaluate(RuleContext{}, ""); !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule, got %v", err)
	}
	if _, err := NewCELEvaluator().Compile(""); !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected cel to reject the empty rule, got %v", err)
	}
}

func TestEnginesShareOneCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	exprEngine := NewExprEvaluator(ExprWithProgramCache(cache))
	celEngine := NewCELEvaluator(CELWithProgramCache(cache))
	for _, engine := range []Evaluator{exprEngine, celEngine, exprEngine} {
		result, err := engine.Evaluate(RuleContext{Value: 3}, "value > 2")
		if err != nil || result != true {
			t.Fatalf("%s: expected true, got %v %v", evaluatorEngineName(engine), result, err)
		}
	}
	if cache.Len() != 2 {
		t.Fatalf("expected one program per engine, got %d", cache.Len())
	}
	if _, ok := cache.Get("cel:value > 2"); !ok {
		t.Fatalf("expected programs keyed by engine")
	}
}

func TestRunErrorCarriesNodePath(t *testing.T) {
	_, err := NewExprEvaluator().Evaluate(RuleContext{Value: 1, Path: "render.quality"}, `value + "x" > 0`)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError, got %v", err)
	}
	if ruleErr.Phase == RuleCompile && ruleErr.Path != "" {
		t.Fatalf("compile errors carry no path, got %+v", ruleErr)
	}
	if ruleErr.Phase == RuleRun && ruleErr.Path != "render.quality" {
		t.Fatalf("expected run error at render.quality, got %+v", ruleErr)
	}
}
