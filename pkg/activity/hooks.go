package activity

import (
	"context"
	"errors"
)

// ActivityHook receives settings events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn. A nil HookFunc is a no-op.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks is an ordered fan-out of hooks.
type Hooks []ActivityHook

// Compact returns the hooks without nil entries, or nil when none remain.
func (h Hooks) Compact() Hooks {
	var out Hooks
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// Notify validates and normalizes event once, then hands every hook its own
// copy. Every hook runs even when an earlier one fails; failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	normalized := NormalizeEvent(event)

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
