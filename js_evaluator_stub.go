//go:build !js_eval

package settings

// NewJSEvaluator returns nil in builds without the js_eval tag. Use
// EvaluatorByName to get an error instead.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator { return nil }

func jsEvaluatorAvailable() bool { return false }
