package csvdoc

import (
	"context"

	"github.com/goliatone/go-csvdoc/pkg/activity"
)

// change describes one committed mutation for activity reporting.
type change struct {
	action   string
	rowID    string
	column   string
	oldValue any
	newValue any
}

func (e *Engine) eventInput(c change, snap Snapshot) activity.DocumentEventInput {
	return activity.DocumentEventInput{
		Document:   e.cfg.document,
		Action:     c.action,
		RowID:      c.rowID,
		Column:     c.column,
		OldValue:   c.oldValue,
		NewValue:   c.newValue,
		Rows:       len(snap.Rows),
		Columns:    len(snap.Headers),
		OccurredAt: e.cfg.clock(),
	}
}

// emit delivers events outside the engine lock so hooks may call back into
// the engine.
func (e *Engine) emit(events ...activity.Event) {
	if !e.emitter.Enabled() {
		return
	}
	for _, event := range events {
		if err := e.emitter.Emit(context.Background(), event); err != nil {
			e.logger.Warn("activity hook failed", "verb", event.Verb, "error", err)
		}
	}
}
