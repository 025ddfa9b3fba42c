package settings

import "fmt"

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*engineConfig)

// JSWithProgramCache stores compiled JS programs in cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes a copy of registry to JS rules as globals.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// Engines lists the rule engines usable in this build.
func Engines() []string {
	if jsEvaluatorAvailable() {
		return []string{"cel", "expr", "js"}
	}
	return []string{"cel", "expr"}
}

// EvaluatorByName returns the evaluator for engine: "expr" (also the empty
// string), "cel" or "js". The js engine requires the js_eval build tag.
func EvaluatorByName(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", "expr":
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case "cel":
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case "js":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js needs a build with the js_eval tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q, have %v", ErrNoEvaluator, engine, Engines())
	}
}
