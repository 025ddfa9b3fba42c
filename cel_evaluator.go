package settings

import (
	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*engineConfig)

// CELWithProgramCache stores compiled CEL programs in cache.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// CELWithFunctionRegistry exposes a copy of registry to CEL rules as unary
// functions taking and returning dyn.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// NewCELEvaluator returns a rule engine backed by cel-go. value, args and
// metadata are dyn; path and key are strings; now is a timestamp.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	cfg := applyEngineOptions(opts)
	backend := &celBackend{registry: cfg.registry}
	backend.env, backend.envErr = backend.buildEnv()
	return newRuleEngine[celgo.Program]("cel", backend, cfg.cache)
}

type celBackend struct {
	registry *FunctionRegistry
	env      *celgo.Env
	envErr   error
}

func (b *celBackend) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	for _, name := range b.registry.Names() {
		opts = append(opts, celgo.Function(name,
			celgo.Overload(name+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
				celgo.UnaryBinding(b.binding(name)),
			),
		))
	}
	return celgo.NewEnv(opts...)
}

func (b *celBackend) compile(expression string) (celgo.Program, error) {
	if b.envErr != nil {
		return nil, &EvaluatorError{Engine: "cel", Err: b.envErr}
	}
	ast, issues := b.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return b.env.Program(ast)
}

func (b *celBackend) run(program celgo.Program, vars map[string]any) (any, error) {
	out, _, err := program.Eval(vars)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (b *celBackend) binding(name string) func(ref.Val) ref.Val {
	return func(arg ref.Val) ref.Val {
		result, err := b.registry.Call(name, arg.Value())
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
