package settings

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures the expr evaluator.
type ExprEvaluatorOption func(*engineConfig)

// ExprWithProgramCache stores compiled expr programs in cache.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// ExprWithFunctionRegistry exposes a copy of registry to expr rules, both as
// named functions and through call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// NewExprEvaluator returns the default rule engine, backed by expr-lang/expr.
// Undefined identifiers evaluate to nil instead of failing compilation.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	cfg := applyEngineOptions(opts)
	return newRuleEngine[*exprvm.Program]("expr", exprBackend{registry: cfg.registry}, cfg.cache)
}

type exprBackend struct {
	registry *FunctionRegistry
}

func (b exprBackend) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range b.registry.Names() {
		name := name
		options = append(options, exprlang.Function(name, func(arguments ...any) (any, error) {
			return b.registry.Call(name, arguments...)
		}))
	}
	return exprlang.Compile(expression, options...)
}

func (b exprBackend) run(program *exprvm.Program, vars map[string]any) (any, error) {
	if b.registry != nil {
		vars["call"] = func(name string, arguments ...any) (any, error) {
			return b.registry.Call(name, arguments...)
		}
	}
	return exprlang.Run(program, vars)
}
