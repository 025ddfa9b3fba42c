package settings

import "github.com/goliatone/go-settings/pkg/activity"

// Option configures tree construction.
type Option func(*buildConfig)

type buildConfig struct {
	registry      *Registry
	overridable   bool
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	logger        Logger
	ruleLogger    RuleLogger
	activityHooks activity.Hooks
	activity      activity.Config
	generator     SchemaGenerator
	err           error
}

// fail records the first option error; Build reports it.
func (cfg *buildConfig) fail(err error) {
	if cfg.err == nil {
		cfg.err = err
	}
}

func applyOptions(opts []Option) buildConfig {
	cfg := buildConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.ruleLogger == nil {
		cfg.ruleLogger = noopRuleLogger{}
	}
	if cfg.generator == nil {
		cfg.generator = DefaultSchemaGenerator()
	}
	return cfg
}

// WithRegistry builds the tree from a private registry instead of
// DefaultRegistry.
func WithRegistry(registry *Registry) Option {
	return func(cfg *buildConfig) {
		cfg.registry = registry
	}
}

// WithOverridable starts the session in override mode: user edits mark nodes
// as overridden and ApplyOverrides establishes override boundaries. Without it
// the tree edits defaults.
func WithOverridable(overridable bool) Option {
	return func(cfg *buildConfig) {
		cfg.overridable = overridable
	}
}

// WithEvaluator configures the evaluator used for descriptor validation rules.
// The expr evaluator is used when none is configured.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *buildConfig) {
		cfg.evaluator = e
	}
}

func (cfg buildConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}
