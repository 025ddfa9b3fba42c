package settings

import (
	"errors"
	"fmt"
)

// ErrEmptyRule is returned when an evaluator is asked to compile or run an
// empty expression.
var ErrEmptyRule = errors.New("settings: rule expression is empty")

// RulePhase tells whether a rule failed to compile or to run.
type RulePhase string

const (
	RuleCompile RulePhase = "compile"
	RuleRun     RulePhase = "run"
)

// RuleError reports a validation rule that failed to compile, failed to run
// or returned something other than a boolean.
type RuleError struct {
	Engine string
	Phase  RulePhase
	Expr   string
	// Path is the dotted path of the node the rule belongs to. Empty for
	// compile failures and ad hoc evaluations.
	Path string
	Err  error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := ""
	if e.Path != "" {
		where = " at " + e.Path
	}
	phase := e.Phase
	if phase == "" {
		phase = RuleRun
	}
	return fmt.Sprintf("settings: %s rule %q %s failed%s: %v", e.Engine, e.Expr, phase, where, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluatorError reports an engine failure unrelated to a single rule, such
// as an environment that cannot be built.
type EvaluatorError struct {
	Engine string
	Err    error
}

func (e *EvaluatorError) Error() string {
	return fmt.Sprintf("settings: %s evaluator: %v", e.Engine, e.Err)
}

func (e *EvaluatorError) Unwrap() error { return e.Err }

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *RuleError
	var evalErr *EvaluatorError
	if errors.As(err, &ruleErr) || errors.As(err, &evalErr) {
		return err
	}
	return &EvaluatorError{Engine: engine, Err: err}
}

func compileError(engine, expr string, err error) error {
	return wrapRuleError(engine, RuleCompile, expr, "", err)
}

func runError(engine, expr, path string, err error) error {
	return wrapRuleError(engine, RuleRun, expr, path, err)
}

// wrapRuleError fills the blanks of an existing RuleError in err, or wraps
// err in a new one.
func wrapRuleError(engine string, phase RulePhase, expr, path string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		return &RuleError{Engine: engine, Phase: phase, Expr: expr, Path: path, Err: err}
	}
	for _, fill := range []struct {
		dst *string
		src string
	}{
		{&ruleErr.Engine, engine},
		{&ruleErr.Expr, expr},
		{&ruleErr.Path, path},
	} {
		if *fill.dst == "" {
			*fill.dst = fill.src
		}
	}
	if ruleErr.Phase == "" {
		ruleErr.Phase = phase
	}
	return ruleErr
}
