// Package usersink forwards document activity to a go-users ActivitySink so
// annotation edits land in the same audit trail as the rest of an
// application's user activity.
package usersink

import (
	"context"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-csvdoc/pkg/activity"
)

// maxValueLen bounds old/new cell values copied into audit records.
const maxValueLen = 512

// cellValueKeys name metadata entries that carry raw cell text.
var cellValueKeys = map[string]bool{"old_value": true, "new_value": true}

// Hook adapts document activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Verbs limits forwarding to the listed verbs. Empty forwards everything.
	Verbs []string
}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if !event.Valid() || !activity.VerbFilter(h.Verbs).Allows(event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record converts a normalized event into an ActivityRecord. Identity fields
// that are not UUIDs map to uuid.Nil; long cell values are truncated.
func Record(event activity.Event) usertypes.ActivityRecord {
	var data map[string]any
	if len(event.Metadata) > 0 {
		data = make(map[string]any, len(event.Metadata))
		for key, value := range event.Metadata {
			if s, ok := value.(string); ok && cellValueKeys[key] {
				value = truncate(s)
			}
			data[key] = value
		}
	}
	return usertypes.ActivityRecord{
		ActorID:    identity(event.ActorID),
		UserID:     identity(event.UserID),
		TenantID:   identity(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

func identity(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func truncate(value string) string {
	if len(value) <= maxValueLen {
		return value
	}
	runes := []rune(value)
	if len(runes) <= maxValueLen {
		return value
	}
	return string(runes[:maxValueLen]) + "…"
}
