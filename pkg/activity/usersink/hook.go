package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook records settings events through a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Channel is used for events that carry none.
	Channel string
}

// Notify writes event as an ActivityRecord. Node object ids are qualified
// with the target domain so paths from different documents stay distinct,
// and the target is copied into the record data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	if err := event.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = activity.NormalizeEvent(event)

	return h.Sink.Log(ctx, Record(event, h.Channel))
}

// Record maps event onto an ActivityRecord. fallbackChannel is used when the
// event names no channel.
func Record(event activity.Event, fallbackChannel string) usertypes.ActivityRecord {
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       targetData(event),
		OccurredAt: event.OccurredAt,
	}
	if event.ObjectType == activity.ObjectTypeNode {
		record.ObjectID = event.Target.Qualify(event.ObjectID)
	}
	if record.Channel == "" {
		record.Channel = strings.TrimSpace(fallbackChannel)
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	return record
}

func targetData(event activity.Event) map[string]any {
	data := make(map[string]any, len(event.Metadata)+3)
	for key, value := range event.Metadata {
		data[key] = value
	}
	for key, value := range map[string]string{
		"domain":      event.Target.Domain,
		"project":     event.Target.Project,
		"snapshot_id": event.Target.SnapshotID,
	} {
		if value != "" {
			data[key] = value
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
