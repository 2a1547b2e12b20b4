package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-csvdoc/pkg/state"
)

type record struct {
	Headers []string `json:"headers"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore[record]()

	ref := state.SchemaRef("notes")
	saved, err := store.Save(ctx, ref, record{Headers: []string{"A", "B"}}, state.Meta{SnapshotID: "snap-1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatalf("expected UpdatedAt to be stamped")
	}

	got, meta, ok, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be found")
	}
	if meta.SnapshotID != "snap-1" {
		t.Fatalf("expected snapshot id snap-1, got %q", meta.SnapshotID)
	}
	if len(got.Headers) != 2 || got.Headers[0] != "A" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestMemoryStorePartitionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore[record]()

	if _, err := store.Save(ctx, state.DocumentRef("notes"), record{Headers: []string{"doc"}}, state.Meta{}); err != nil {
		t.Fatalf("save document: %v", err)
	}

	_, _, ok, err := store.Load(ctx, state.SchemaRef("notes"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	if ok {
		t.Fatalf("schema partition must not see document records")
	}

	if err := store.Delete(ctx, state.DocumentRef("notes")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Len())
	}
}

func TestMemoryStoreRejectsInvalidRef(t *testing.T) {
	store := state.NewMemoryStore[record]()
	_, err := store.Save(context.Background(), state.Ref{Partition: "cache", Document: "x"}, record{}, state.Meta{})
	if !errors.Is(err, state.ErrInvalidRef) {
		t.Fatalf("expected ErrInvalidRef, got %v", err)
	}
}

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     state.Ref
		want    string
		wantErr bool
	}{
		{name: "document", ref: state.DocumentRef("default"), want: "document/default"},
		{name: "schema", ref: state.SchemaRef(" default "), want: "schema/default"},
		{name: "empty document", ref: state.SchemaRef(""), wantErr: true},
		{name: "slash", ref: state.SchemaRef("a/b"), wantErr: true},
		{name: "unknown partition", ref: state.Ref{Partition: "other", Document: "x"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	meta := state.Meta{SnapshotID: "snap", UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	data, err := state.EncodeEnvelope[record](nil, record{Headers: []string{"x"}}, meta)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, gotMeta, err := state.DecodeEnvelope[record](state.JSONCodec[record]{}, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotMeta.SnapshotID != "snap" || !gotMeta.UpdatedAt.Equal(meta.UpdatedAt) {
		t.Fatalf("unexpected meta %+v", gotMeta)
	}
	if len(got.Headers) != 1 || got.Headers[0] != "x" {
		t.Fatalf("unexpected record %+v", got)
	}
}
