package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is stamped on events that name no channel.
const DefaultChannel = "settings"

// Config holds the defaults an Emitter stamps on every event.
type Config struct {
	Enabled bool
	Channel string
	// ActorID and Target fill events that leave them empty.
	ActorID string
	Target  Target
	// Now defaults to time.Now.
	Now func() time.Time
}

// Emitter stamps tree-wide defaults on events before fanning them out.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter returns an emitter over hooks. The emitter is disabled when
// cfg.Enabled is false or no hook is left after dropping nil entries.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Emitter{hooks: hooks.Compact(), cfg: cfg}
}

// Enabled reports whether Emit reaches any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit fills the channel, actor, target and timestamp defaults and notifies
// every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	return e.hooks.Notify(ctx, e.stamp(event))
}

func (e *Emitter) stamp(event Event) Event {
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if event.Target.IsZero() {
		event.Target = e.cfg.Target
	}
	if event.ObjectType == ObjectTypeTree && strings.TrimSpace(event.ObjectID) == "" {
		event.ObjectID = treeObjectID(event.Target)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.cfg.Now()
	}
	return event
}
