package settings

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from validation rules.
type Function func(args ...any) (any, error)

var functionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FunctionRegistry holds rule helpers. Names are case insensitive and are
// exposed to rules in lower case, so "OneOf" is called as oneof(...).
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// StandardFunctions returns a registry holding oneof(value, choices...),
// matches(value, pattern) and between(value, low, high). CEL binds helpers
// as unary functions, so these are meant for expr and js rules.
func StandardFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.mustRegister("oneof", oneOf)
	r.mustRegister("matches", matches)
	r.mustRegister("between", between)
	return r
}

// Register adds fn under name. Names must be identifiers usable from every
// rule engine.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("%w: %q has no implementation", ErrFunction, name)
	}
	if !functionName.MatchString(name) {
		return fmt.Errorf("%w: %q is not an identifier", ErrFunction, name)
	}
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q already registered", ErrFunction, name)
	}
	r.functions[key] = fn
	return nil
}

func (r *FunctionRegistry) mustRegister(name string, fn Function) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Merge copies the helpers of other that r does not define yet.
func (r *FunctionRegistry) Merge(other *FunctionRegistry) {
	if other == nil || other == r {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function, len(other.functions))
	}
	for name, fn := range other.functions {
		if _, exists := r.functions[name]; !exists {
			r.functions[name] = fn
		}
	}
}

// Clone returns an independent copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	clone := NewFunctionRegistry()
	clone.Merge(r)
	return clone
}

// Call runs the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q not registered", ErrFunction, name)
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q not registered", ErrFunction, name)
	}
	return fn(args...)
}

// Names lists the registered helpers in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes a copy of registry to validation rules run by
// the default evaluator. Helpers added with WithCustomFunction are kept.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *buildConfig) {
		if registry == nil {
			return
		}
		if cfg.functions == nil {
			cfg.functions = registry.Clone()
			return
		}
		cfg.functions.Merge(registry)
	}
}

// WithCustomFunction registers fn under name for validation rules run by the
// default evaluator. Build fails when the name is invalid or taken.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *buildConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.fail(err)
		}
	}
}

// oneOf reports whether the first argument equals any of the others.
// Numbers compare by value regardless of their Go type.
func oneOf(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("oneof: expected a value and at least one choice")
	}
	value := args[0]
	choices := args[1:]
	if len(choices) == 1 {
		if list, ok := choices[0].([]any); ok {
			choices = list
		}
	}
	for _, choice := range choices {
		if sameValue(value, choice) {
			return true, nil
		}
	}
	return false, nil
}

func matches(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("matches: expected value and pattern")
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("matches: pattern must be a string, got %T", args[1])
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("matches: %w", err)
	}
	text, ok := args[0].(string)
	if !ok {
		return false, nil
	}
	return re.MatchString(text), nil
}

func between(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("between: expected value, low and high")
	}
	var nums [3]float64
	for i, arg := range args {
		n, err := toFloat(arg)
		if err != nil {
			return nil, fmt.Errorf("between: argument %d: %w", i, err)
		}
		nums[i] = n
	}
	return nums[0] >= nums[1] && nums[0] <= nums[2], nil
}

func sameValue(a, b any) bool {
	if x, err := toFloat(a); err == nil {
		y, err := toFloat(b)
		return err == nil && x == y
	}
	return reflect.DeepEqual(a, b)
}
