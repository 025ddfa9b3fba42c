// Package hydrate turns loosely typed schema and settings payloads, as read
// from JSON or YAML, into typed Go values.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Context identifies the document a payload was read from.
type Context struct {
	// Source is the file name or label of the document.
	Source string
	// Format is the document encoding ("json", "yaml").
	Format string
}

// Stage names the step of Decode that failed.
type Stage string

const (
	StageCopy    Stage = "copy"
	StageRewrite Stage = "rewrite"
	StageDecode  Stage = "decode"
	StageCheck   Stage = "check"
)

// Error reports a failed hydration step.
type Error struct {
	Source string
	Stage  Stage
	// Node is the payload location being rewritten, when known.
	Node string
	Err  error
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("hydrate %s: %s %s: %v", e.Source, e.Stage, e.Node, e.Err)
	}
	return fmt.Sprintf("hydrate %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PreHook rewrites the whole payload before decoding. It receives a private
// copy and may modify it in place.
type PreHook func(Context, map[string]any) (map[string]any, error)

// NodeRewrite rewrites one nested node of the payload in place. at is the
// location of the node, such as "children[2].object_type".
type NodeRewrite func(ctx Context, at string, node map[string]any) error

// PostHook checks or completes the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts payloads into T through rewrite, decode and check steps.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
}

// WithPreHook runs hook on the payload before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithNodeRewrite runs rewrite on the payload root and on every mapping
// nested under one of keys, depth first. Values under keys may be a mapping
// or a list of mappings; anything else fails the decode.
func WithNodeRewrite[T any](rewrite NodeRewrite, keys ...string) DecoderOption[T] {
	return WithPreHook[T](func(ctx Context, payload map[string]any) (map[string]any, error) {
		return payload, walk(ctx, "", payload, rewrite, keys)
	})
}

// WithPostHook runs hook on the decoded value.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithStrict rejects payload keys that have no matching field in T.
func WithStrict[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// NewDecoder returns a decoder applying opts in order.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode hydrates payload into T. The caller's payload is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var result T
	if payload == nil {
		return result, &Error{Source: ctx.Source, Stage: StageCopy, Err: fmt.Errorf("payload is nil")}
	}
	current, err := roundTrip[map[string]any](payload, false)
	if err != nil {
		return result, &Error{Source: ctx.Source, Stage: StageCopy, Err: err}
	}

	for _, hook := range d.preHooks {
		next, err := hook(ctx, current)
		if err != nil {
			return result, asError(ctx, StageRewrite, err)
		}
		if next != nil {
			current = next
		}
	}

	result, err = roundTrip[T](current, d.strict)
	if err != nil {
		return result, &Error{Source: ctx.Source, Stage: StageDecode, Err: err}
	}

	for _, hook := range d.postHooks {
		if err := hook(ctx, &result); err != nil {
			return result, &Error{Source: ctx.Source, Stage: StageCheck, Err: err}
		}
	}
	return result, nil
}

func roundTrip[T any](in any, strict bool) (T, error) {
	var out T
	buffer, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if strict {
		decoder.DisallowUnknownFields()
	}
	err = decoder.Decode(&out)
	return out, err
}

func walk(ctx Context, at string, node map[string]any, rewrite NodeRewrite, keys []string) error {
	if err := rewrite(ctx, at, node); err != nil {
		return &Error{Source: ctx.Source, Stage: StageRewrite, Node: label(at), Err: err}
	}
	for _, key := range keys {
		switch nested := node[key].(type) {
		case nil:
		case map[string]any:
			if err := walk(ctx, join(at, key), nested, rewrite, keys); err != nil {
				return err
			}
		case []any:
			for i, item := range nested {
				child, ok := item.(map[string]any)
				itemAt := join(at, key) + "[" + strconv.Itoa(i) + "]"
				if !ok {
					return &Error{Source: ctx.Source, Stage: StageRewrite, Node: itemAt, Err: fmt.Errorf("expected a mapping, got %T", item)}
				}
				if err := walk(ctx, itemAt, child, rewrite, keys); err != nil {
					return err
				}
			}
		default:
			return &Error{Source: ctx.Source, Stage: StageRewrite, Node: join(at, key), Err: fmt.Errorf("expected a mapping or a list, got %T", nested)}
		}
	}
	return nil
}

func asError(ctx Context, stage Stage, err error) error {
	if typed, ok := err.(*Error); ok {
		return typed
	}
	return &Error{Source: ctx.Source, Stage: stage, Err: err}
}

func join(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}

func label(at string) string {
	if at == "" {
		return "root"
	}
	return at
}
