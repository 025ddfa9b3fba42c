package settings

import (
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified about edits, removed
// overrides, applied overrides and collected overrides. Nil entries are
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	compact := hooks.Compact()
	return func(cfg *buildConfig) {
		cfg.activityHooks = compact
		cfg.activity.Enabled = len(compact) > 0
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *buildConfig) {
		cfg.activity.Channel = channel
	}
}

// WithActor records the actor identifier attached to emitted events.
func WithActor(actorID string) Option {
	return func(cfg *buildConfig) {
		cfg.activity.ActorID = actorID
	}
}

// WithTarget names the settings document the tree edits. It is stamped on
// emitted events.
func WithTarget(target activity.Target) Option {
	return func(cfg *buildConfig) {
		cfg.activity.Target = target
	}
}

// WithActivityClock sets the clock used to timestamp events.
func WithActivityClock(now func() time.Time) Option {
	return func(cfg *buildConfig) {
		cfg.activity.Now = now
	}
}
