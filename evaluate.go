package settings

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("settings: evaluator not configured")

// Evaluate runs expr against ctx with the evaluator configured on the tree.
// It is the programmatic counterpart of descriptor validation rules.
func (t *Tree) Evaluate(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, ErrEmptyRule
	}
	evaluator, err := t.rules.evaluatorOrDefault()
	if err != nil {
		return nil, err
	}
	return evaluator.Evaluate(ctx, expr)
}

// ruleCompiler compiles descriptor rules during tree construction and lazily
// resolves the evaluator so schemas without rules never build one.
type ruleCompiler struct {
	cfg       buildConfig
	evaluator Evaluator
}

func (c *ruleCompiler) evaluatorOrDefault() (Evaluator, error) {
	if c.evaluator != nil {
		return c.evaluator, nil
	}
	evaluator, err := c.cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	c.evaluator = evaluator
	return evaluator, nil
}

func (c *ruleCompiler) compile(expr string) (*nodeRule, error) {
	if expr == "" {
		return nil, nil
	}
	evaluator, err := c.evaluatorOrDefault()
	if err != nil {
		return nil, err
	}
	compiled, err := evaluator.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &nodeRule{
		engine:   evaluatorEngineName(evaluator),
		expr:     expr,
		compiled: compiled,
		events:   c.cfg.ruleLogger,
		logger:   c.cfg.logger,
	}, nil
}

type nodeRule struct {
	engine   string
	expr     string
	compiled CompiledRule
	events   RuleLogger
	logger   Logger
}

// check reports whether the rule accepts the value. Evaluation errors and
// non-boolean results count as a rejection.
func (r *nodeRule) check(ctx RuleContext) bool {
	if r == nil {
		return true
	}
	start := time.Now()
	result, err := r.compiled.Evaluate(ctx)
	passed := false
	if err == nil {
		value, ok := result.(bool)
		if !ok {
			err = runError(r.engine, r.expr, ctx.label(), fmt.Errorf("rule returned %T, want bool", result))
		}
		passed = ok && value
	}
	r.events.LogRule(RuleLogEvent{
		Engine:   r.engine,
		Expr:     r.expr,
		Path:     ctx.label(),
		Passed:   passed,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		r.logger.Debug("settings rule evaluation failed", "path", ctx.label(), "error", err)
	}
	return passed
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	if e == nil {
		return "unknown"
	}
	return "custom"
}
