package activity

import (
	"errors"
	"strings"
	"time"
)

// ErrIncompleteEvent is returned when an event lacks its verb, object type or
// object id.
var ErrIncompleteEvent = errors.New("activity: incomplete event")

// Event is one settings lifecycle occurrence. Identifiers are plain strings;
// sinks decide how to parse them.
type Event struct {
	Verb     string
	ActorID  string
	UserID   string
	TenantID string
	// ObjectType is ObjectTypeNode or ObjectTypeTree.
	ObjectType string
	// ObjectID is the dotted node path for node events and the target domain
	// for tree events.
	ObjectID string
	Channel  string
	Target   Target
	Metadata map[string]any
	// OccurredAt is stamped by the emitter when zero.
	OccurredAt time.Time
}

// Validate reports ErrIncompleteEvent when the event cannot be routed.
func (e Event) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Verb) == "" {
		missing = append(missing, "verb")
	}
	if strings.TrimSpace(e.ObjectType) == "" {
		missing = append(missing, "object type")
	}
	if strings.TrimSpace(e.ObjectID) == "" {
		missing = append(missing, "object id")
	}
	if len(missing) == 0 {
		return nil
	}
	return &incompleteError{missing: missing}
}

type incompleteError struct {
	missing []string
}

func (e *incompleteError) Error() string {
	return ErrIncompleteEvent.Error() + ": missing " + strings.Join(e.missing, ", ")
}

func (e *incompleteError) Unwrap() error { return ErrIncompleteEvent }

// Clone returns a copy of the event with trimmed identifiers and its own
// metadata map. Timestamps are left untouched.
func (e Event) Clone() Event {
	out := e
	out.Verb = strings.TrimSpace(e.Verb)
	out.ActorID = strings.TrimSpace(e.ActorID)
	out.UserID = strings.TrimSpace(e.UserID)
	out.TenantID = strings.TrimSpace(e.TenantID)
	out.ObjectType = strings.TrimSpace(e.ObjectType)
	out.ObjectID = strings.TrimSpace(e.ObjectID)
	out.Channel = strings.TrimSpace(e.Channel)
	out.Target = e.Target.trimmed()
	out.Metadata = cloneMap(e.Metadata)
	return out
}

// NormalizeEvent clones the event and stamps the current time when
// OccurredAt is zero.
func NormalizeEvent(event Event) Event {
	out := event.Clone()
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
