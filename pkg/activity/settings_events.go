package activity

import (
	"strings"
	"time"
)

// Verbs emitted by settings trees.
const (
	VerbValueChanged       = "settings.value.changed"
	VerbOverridesApplied   = "settings.overrides.applied"
	VerbOverridesCollected = "settings.overrides.collected"
	VerbOverrideRemoved    = "settings.override.removed"
)

// Object types stamped on settings events.
const (
	ObjectTypeNode = "settings.node"
	ObjectTypeTree = "settings.tree"
)

// Target identifies the settings document an event refers to.
type Target struct {
	// Domain names the settings document ("studio/general").
	Domain string
	// Project is empty for studio defaults.
	Project    string
	SnapshotID string
}

// IsZero reports whether no field of the target is set.
func (t Target) IsZero() bool {
	return t.Domain == "" && t.Project == "" && t.SnapshotID == ""
}

// Qualify prefixes id with the target domain. Ids already carrying the
// prefix are returned unchanged.
func (t Target) Qualify(id string) string {
	if t.Domain == "" || strings.HasPrefix(id, t.Domain+":") {
		return id
	}
	return t.Domain + ":" + id
}

func (t Target) trimmed() Target {
	return Target{
		Domain:     strings.TrimSpace(t.Domain),
		Project:    strings.TrimSpace(t.Project),
		SnapshotID: strings.TrimSpace(t.SnapshotID),
	}
}

func treeObjectID(target Target) string {
	if domain := strings.TrimSpace(target.Domain); domain != "" {
		return domain
	}
	return ObjectTypeTree
}

// SettingsEventInput carries the fields a tree knows about one change.
type SettingsEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	Channel  string
	// Path is the dotted node path. Empty for tree events.
	Path       string
	OldValue   any
	NewValue   any
	Overridden bool
	Target     Target
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildValueChangedEvent describes a single edit of the node at input.Path.
func BuildValueChangedEvent(input SettingsEventInput) Event {
	event := nodeEvent(VerbValueChanged, input)
	event.Metadata = withValue(event.Metadata, "overridden", input.Overridden)
	return event
}

// BuildOverrideRemovedEvent describes a node override being dropped.
// NewValue holds the restored default.
func BuildOverrideRemovedEvent(input SettingsEventInput) Event {
	return nodeEvent(VerbOverrideRemoved, input)
}

// BuildOverridesAppliedEvent describes an override document pushed into a
// tree.
func BuildOverridesAppliedEvent(input SettingsEventInput) Event {
	return treeEvent(VerbOverridesApplied, input)
}

// BuildOverridesCollectedEvent describes an override document collected from
// a tree.
func BuildOverridesCollectedEvent(input SettingsEventInput) Event {
	return treeEvent(VerbOverridesCollected, input)
}

func nodeEvent(verb string, input SettingsEventInput) Event {
	event := baseEvent(verb, ObjectTypeNode, input)
	event.ObjectID = strings.TrimSpace(input.Path)
	if event.ObjectID != "" {
		event.Metadata = withValue(event.Metadata, "path", event.ObjectID)
	}
	if input.OldValue != nil {
		event.Metadata = withValue(event.Metadata, "old_value", input.OldValue)
	}
	if input.NewValue != nil {
		event.Metadata = withValue(event.Metadata, "new_value", input.NewValue)
	}
	return event
}

// treeEvent leaves ObjectID empty when the target names no domain; the
// emitter fills it once the tree target is known.
func treeEvent(verb string, input SettingsEventInput) Event {
	event := baseEvent(verb, ObjectTypeTree, input)
	event.ObjectID = event.Target.Domain
	return event
}

func baseEvent(verb, objectType string, input SettingsEventInput) Event {
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		Channel:    strings.TrimSpace(input.Channel),
		Target:     input.Target.trimmed(),
		Metadata:   cloneMap(input.Metadata),
		OccurredAt: input.OccurredAt,
	}
}

func withValue(meta map[string]any, key string, value any) map[string]any {
	if meta == nil {
		meta = map[string]any{}
	}
	meta[key] = value
	return meta
}
