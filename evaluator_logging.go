package settings

import "time"

// RuleLogEvent describes one validation rule evaluation.
type RuleLogEvent struct {
	Engine   string
	Expr     string
	Path     string
	Passed   bool
	Duration time.Duration
	Err      error
}

// RuleLogger records rule evaluation events.
type RuleLogger interface {
	LogRule(RuleLogEvent)
}

// RuleLoggerFunc adapts a function to RuleLogger.
type RuleLoggerFunc func(RuleLogEvent)

// LogRule implements RuleLogger.
func (f RuleLoggerFunc) LogRule(event RuleLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopRuleLogger struct{}

func (noopRuleLogger) LogRule(RuleLogEvent) {}

// WithRuleLogger attaches a rule logger to the tree configuration.
func WithRuleLogger(logger RuleLogger) Option {
	return func(cfg *buildConfig) {
		if logger == nil {
			cfg.ruleLogger = noopRuleLogger{}
			return
		}
		cfg.ruleLogger = logger
	}
}

// Logger is the structured logger used by trees. A *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// WithLogger configures the structured logger used by the tree.
func WithLogger(logger Logger) Option {
	return func(cfg *buildConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
