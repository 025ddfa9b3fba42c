package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsSettingsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildValueChangedEvent(activity.SettingsEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		Channel:    "settings",
		Path:       "general.fps",
		OldValue:   24,
		NewValue:   25,
		Target:     activity.Target{Domain: "studio/general", Project: "ep101"},
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user id, got %s", record.UserID)
	}
	if record.Verb != activity.VerbValueChanged || record.ObjectType != activity.ObjectTypeNode {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.ObjectID != "studio/general:general.fps" {
		t.Fatalf("expected domain qualified object id, got %q", record.ObjectID)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["new_value"] != 25 || record.Data["project"] != "ep101" || record.Data["domain"] != "studio/general" {
		t.Fatalf("expected metadata and target in data, got %v", record.Data)
	}
	if _, ok := record.Data["snapshot_id"]; ok {
		t.Fatalf("empty target fields should be omitted, got %v", record.Data)
	}
}

func TestHookNotifyRejectsIncompleteEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{})
	if !errors.Is(err, activity.ErrIncompleteEvent) {
		t.Fatalf("expected ErrIncompleteEvent, got %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsChannelAndTimestamp(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Channel: "settings"}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbOverridesApplied,
		ObjectType: activity.ObjectTypeTree,
		ObjectID:   "general",
		Target:     activity.Target{Domain: "general"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.Channel != "settings" {
		t.Fatalf("expected default channel, got %q", record.Channel)
	}
	if record.ObjectID != "general" {
		t.Fatalf("tree events keep their object id, got %q", record.ObjectID)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("db offline")}
	hook := usersink.Hook{Sink: sink}
	event := activity.Event{Verb: activity.VerbOverrideRemoved, ObjectType: activity.ObjectTypeNode, ObjectID: "render.farm"}
	if err := hook.Notify(context.Background(), event); err == nil || err.Error() != "db offline" {
		t.Fatalf("expected sink error, got %v", err)
	}
	if err := (usersink.Hook{}).Notify(context.Background(), event); err != nil {
		t.Fatalf("hook without sink should be a no-op, got %v", err)
	}
}
