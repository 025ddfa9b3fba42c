//go:build js_eval

package settings

import (
	"github.com/dop251/goja"
)

// NewJSEvaluator returns a rule engine backed by goja. Each rule is wrapped
// in a function so a bare expression yields its value. Every evaluation runs
// in a fresh runtime.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyEngineOptions(opts)
	return newRuleEngine[*goja.Program]("js", jsBackend{registry: cfg.registry}, cfg.cache)
}

type jsBackend struct {
	registry *FunctionRegistry
}

func (b jsBackend) compile(expression string) (*goja.Program, error) {
	return goja.Compile("rule", "(function(){ return ("+expression+"); })()", false)
}

func (b jsBackend) run(program *goja.Program, vars map[string]any) (any, error) {
	vm := goja.New()
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	for _, name := range b.registry.Names() {
		name := name
		if err := vm.Set(name, func(arguments ...any) (any, error) {
			return b.registry.Call(name, arguments...)
		}); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool { return true }
