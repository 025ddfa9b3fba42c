package settings

import "fmt"

// ruleBackend compiles and runs programs of one rule language.
type ruleBackend[P any] interface {
	compile(expression string) (P, error)
	run(program P, vars map[string]any) (any, error)
}

// engineConfig is shared by the expr, cel and js evaluator options.
type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func applyEngineOptions[O ~func(*engineConfig)](opts []O) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry != nil {
		cfg.registry = cfg.registry.Clone()
	}
	return cfg
}

// ruleEngine adapts a backend to Evaluator. Programs are cached under
// "<engine>:<expression>" so one cache can serve several engines.
type ruleEngine[P any] struct {
	name    string
	backend ruleBackend[P]
	cache   ProgramCache
}

func newRuleEngine[P any](name string, backend ruleBackend[P], cache ProgramCache) *ruleEngine[P] {
	return &ruleEngine[P]{name: name, backend: backend, cache: cache}
}

// Engine names the rule language.
func (e *ruleEngine[P]) Engine() string { return e.name }

func (e *ruleEngine[P]) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *ruleEngine[P]) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(e.name, ErrEmptyRule)
	}
	program, err := e.load(expression)
	if err != nil {
		return nil, err
	}
	return &compiledRule[P]{engine: e, program: program, expression: expression}, nil
}

func (e *ruleEngine[P]) load(expression string) (P, error) {
	key := e.name + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := e.backend.compile(expression)
	if err != nil {
		return program, compileError(e.name, expression, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

type compiledRule[P any] struct {
	engine     *ruleEngine[P]
	program    P
	expression string
}

func (r *compiledRule[P]) Evaluate(ctx RuleContext) (any, error) {
	if r.engine == nil {
		return nil, wrapEvaluatorError("unknown", fmt.Errorf("compiled rule has no engine"))
	}
	ctx = ctx.withDefaults()
	out, err := r.engine.backend.run(r.program, ctx.variables())
	if err != nil {
		return nil, runError(r.engine.name, r.expression, ctx.label(), err)
	}
	return out, nil
}
