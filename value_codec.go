package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// valueCodec converts between document values, user input and the natural
// shape returned by ItemValue for one leaf type.
type valueCodec interface {
	typeName() string
	empty() any
	// coerce converts a user edit.
	coerce(value any) (any, error)
	// decode converts a value read from a stored or override document.
	decode(value any) (any, error)
	output(value any) any
	equal(a, b any) bool
	invalid(value any) bool
}

type boolCodec struct{}

func (boolCodec) typeName() string { return "boolean" }
func (boolCodec) empty() any       { return false }
func (boolCodec) output(v any) any { return v }
func (boolCodec) equal(a, b any) bool {
	return a == b
}
func (boolCodec) invalid(any) bool { return false }
func (c boolCodec) decode(v any) (any, error) {
	return c.coerce(v)
}
func (boolCodec) coerce(v any) (any, error) {
	switch typed := v.(type) {
	case bool:
		return typed, nil
	default:
		return nil, mismatch("boolean", v)
	}
}

type integerCodec struct {
	minimum *float64
	maximum *float64
}

func (integerCodec) typeName() string { return "integer" }
func (integerCodec) empty() any       { return 0 }
func (integerCodec) output(v any) any { return v }
func (integerCodec) equal(a, b any) bool {
	return a == b
}
func (integerCodec) invalid(any) bool { return false }
func (c integerCodec) decode(v any) (any, error) {
	return c.coerce(v)
}
func (c integerCodec) coerce(v any) (any, error) {
	number, err := toFloat(v)
	if err != nil {
		return nil, mismatch("integer", v)
	}
	if number != math.Trunc(number) {
		return nil, fmt.Errorf("%w: %v is not an integer", ErrValueType, v)
	}
	return int(clamp(number, c.minimum, c.maximum)), nil
}

const defaultDecimals = 5

type floatCodec struct {
	minimum  *float64
	maximum  *float64
	decimals int
}

func (floatCodec) typeName() string { return "float" }
func (floatCodec) empty() any       { return float64(0) }
func (floatCodec) output(v any) any { return v }
func (floatCodec) equal(a, b any) bool {
	return a == b
}
func (floatCodec) invalid(any) bool { return false }
func (c floatCodec) decode(v any) (any, error) {
	return c.coerce(v)
}
func (c floatCodec) coerce(v any) (any, error) {
	number, err := toFloat(v)
	if err != nil {
		return nil, mismatch("float", v)
	}
	number = clamp(number, c.minimum, c.maximum)
	scale := math.Pow(10, float64(c.decimals))
	return math.Round(number*scale) / scale, nil
}

type textCodec struct {
	multiline bool
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func (textCodec) typeName() string { return "text" }
func (textCodec) empty() any       { return "" }
func (textCodec) output(v any) any { return v }
func (textCodec) equal(a, b any) bool {
	return a == b
}
func (textCodec) invalid(any) bool { return false }
func (c textCodec) decode(v any) (any, error) {
	return c.coerce(v)
}
func (c textCodec) coerce(v any) (any, error) {
	text, ok := v.(string)
	if !ok {
		return nil, mismatch("text", v)
	}
	if !c.multiline {
		text = lineBreaks.Replace(text)
	}
	return text, nil
}

// jsonCodec keeps the raw text typed by the user. Document values are
// structures and are rendered to indented text on decode.
type jsonCodec struct{}

func (jsonCodec) typeName() string { return "raw-json" }
func (jsonCodec) empty() any       { return "" }

func (jsonCodec) coerce(v any) (any, error) {
	text, ok := v.(string)
	if !ok {
		return nil, mismatch("json text", v)
	}
	return text, nil
}

func (jsonCodec) decode(v any) (any, error) {
	if v == nil {
		return "", nil
	}
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValueType, err)
	}
	return string(raw), nil
}

// output returns the parsed value, nil for empty text and the raw text when
// it does not parse.
func (jsonCodec) output(v any) any {
	text, _ := v.(string)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return text
	}
	return parsed
}

func (c jsonCodec) equal(a, b any) bool {
	return reflect.DeepEqual(c.output(a), c.output(b))
}

func (jsonCodec) invalid(v any) bool {
	text, _ := v.(string)
	if strings.TrimSpace(text) == "" {
		return false
	}
	return !json.Valid([]byte(text))
}

type stringListCodec struct{}

func (stringListCodec) typeName() string { return "string-list" }
func (stringListCodec) empty() any       { return []string{} }
func (stringListCodec) invalid(any) bool { return false }

func (stringListCodec) output(v any) any {
	items, _ := v.([]string)
	return append([]string{}, items...)
}

func (c stringListCodec) equal(a, b any) bool {
	return reflect.DeepEqual(c.output(a), c.output(b))
}

func (c stringListCodec) decode(v any) (any, error) {
	return c.coerce(v)
}

func (stringListCodec) coerce(v any) (any, error) {
	items, err := toStringList(v)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func toFloat(v any) (float64, error) {
	switch typed := v.(type) {
	case int:
		return float64(typed), nil
	case int8:
		return float64(typed), nil
	case int16:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case uint:
		return float64(typed), nil
	case uint8:
		return float64(typed), nil
	case uint16:
		return float64(typed), nil
	case uint32:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	case float32:
		return float64(typed), nil
	case float64:
		return typed, nil
	case json.Number:
		return typed.Float64()
	default:
		return 0, mismatch("number", v)
	}
}

func toStringList(v any) ([]string, error) {
	switch typed := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, typed...), nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, mismatch("list of strings", v)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, mismatch("list of strings", v)
	}
}

func clamp(value float64, minimum, maximum *float64) float64 {
	if minimum != nil && value < *minimum {
		value = *minimum
	}
	if maximum != nil && value > *maximum {
		value = *maximum
	}
	return value
}

func mismatch(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrValueType, want, got)
}
