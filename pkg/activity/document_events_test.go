package activity

import (
	"errors"
	"testing"
)

func TestBuildDocumentEventObjectSelection(t *testing.T) {
	cases := []struct {
		name       string
		input      DocumentEventInput
		objectType string
		objectID   string
	}{
		{name: "document", input: DocumentEventInput{Document: "default", Action: "load_file"}, objectType: ObjectDocument, objectID: "default"},
		{name: "row", input: DocumentEventInput{Document: "default", RowID: "r1", Column: "Status"}, objectType: ObjectRow, objectID: "r1"},
		{name: "column", input: DocumentEventInput{Document: "default", Column: "Status"}, objectType: ObjectColumn, objectID: "Status"},
		{name: "fallback", input: DocumentEventInput{}, objectType: ObjectDocument, objectID: ObjectDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt := BuildDocumentCommittedEvent(tc.input)
			if evt.Verb != VerbDocumentCommitted {
				t.Fatalf("unexpected verb %q", evt.Verb)
			}
			if evt.ObjectType != tc.objectType || evt.ObjectID != tc.objectID {
				t.Fatalf("expected %s/%s, got %s/%s", tc.objectType, tc.objectID, evt.ObjectType, evt.ObjectID)
			}
		})
	}
}

func TestBuildPersistFailedEventCarriesError(t *testing.T) {
	evt := BuildPersistFailedEvent(DocumentEventInput{
		Document:  "default",
		Partition: "schema",
		Err:       errors.New("quota exceeded"),
		Metadata:  map[string]any{"attempt": 1},
	})
	if evt.Metadata["error"] != "quota exceeded" {
		t.Fatalf("expected error metadata, got %+v", evt.Metadata)
	}
	if evt.Metadata["partition"] != "schema" || evt.Metadata["attempt"] != 1 {
		t.Fatalf("unexpected metadata %+v", evt.Metadata)
	}
}

func TestBuildCommittedEventValues(t *testing.T) {
	evt := BuildDocumentCommittedEvent(DocumentEventInput{
		Document: "default",
		Action:   "edit_cell",
		RowID:    "r1",
		Column:   "B",
		OldValue: "y",
		NewValue: "z",
	})
	if evt.Metadata["old_value"] != "y" || evt.Metadata["new_value"] != "z" {
		t.Fatalf("unexpected values %+v", evt.Metadata)
	}
	if evt.Metadata["action"] != "edit_cell" || evt.Metadata["column"] != "B" {
		t.Fatalf("unexpected metadata %+v", evt.Metadata)
	}
}

func TestBuildDocumentEventCopiesCallerMetadata(t *testing.T) {
	caller := map[string]any{"source": "upload"}
	event := BuildDocumentLoadedEvent(DocumentEventInput{Document: "default", Rows: 2, Metadata: caller})

	if event.Metadata["source"] != "upload" || event.Metadata["rows"] != 2 {
		t.Fatalf("unexpected metadata %v", event.Metadata)
	}
	if _, leaked := caller["rows"]; leaked {
		t.Fatalf("caller metadata mutated: %v", caller)
	}
}
