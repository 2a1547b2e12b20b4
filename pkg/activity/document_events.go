package activity

import (
	"maps"
	"strings"
	"time"
)

// Verbs emitted by the document engine.
const (
	VerbDocumentLoaded    = "document.loaded"
	VerbDocumentRestored  = "document.restored"
	VerbDocumentCommitted = "document.committed"
	VerbDocumentUndone    = "document.undone"
	VerbDocumentRedone    = "document.redone"
	VerbPersistFailed     = "document.persist.failed"
)

// Object types used on document events.
const (
	ObjectDocument = "document"
	ObjectRow      = "document.row"
	ObjectColumn   = "document.column"
)

// DocumentEventInput describes the common fields for document lifecycle events.
type DocumentEventInput struct {
	Document   string
	Action     string
	RowID      string
	Column     string
	OldValue   any
	NewValue   any
	Rows       int
	Columns    int
	Partition  string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildDocumentLoadedEvent constructs an event for a file load commit.
func BuildDocumentLoadedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentLoaded, input)
}

// BuildDocumentRestoredEvent constructs an event for a restore from storage.
func BuildDocumentRestoredEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentRestored, input)
}

// BuildDocumentCommittedEvent constructs an event for a recorded mutation.
func BuildDocumentCommittedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentCommitted, input)
}

// BuildDocumentUndoneEvent constructs an event for an applied undo.
func BuildDocumentUndoneEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentUndone, input)
}

// BuildDocumentRedoneEvent constructs an event for an applied redo.
func BuildDocumentRedoneEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbDocumentRedone, input)
}

// BuildPersistFailedEvent constructs an event for a failed partition write.
func BuildPersistFailedEvent(input DocumentEventInput) Event {
	return buildDocumentEvent(VerbPersistFailed, input)
}

func buildDocumentEvent(verb string, input DocumentEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	set := func(key string, value any) {
		metadata = ensureMetadata(metadata)
		metadata[key] = value
	}
	if input.Action != "" {
		set("action", input.Action)
	}
	if input.Column != "" {
		set("column", input.Column)
	}
	if input.RowID != "" {
		set("row_id", input.RowID)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}
	if input.Rows > 0 {
		set("rows", input.Rows)
	}
	if input.Columns > 0 {
		set("columns", input.Columns)
	}
	if input.Partition != "" {
		set("partition", input.Partition)
	}
	if input.Err != nil {
		set("error", input.Err.Error())
	}

	objectType := ObjectDocument
	objectID := strings.TrimSpace(input.Document)
	switch {
	case input.RowID != "":
		objectType = ObjectRow
		objectID = strings.TrimSpace(input.RowID)
	case input.Column != "":
		objectType = ObjectColumn
		objectID = strings.TrimSpace(input.Column)
	}
	if objectID == "" {
		objectID = objectType
	}
	if input.Document != "" {
		set("document", input.Document)
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
