package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " document.committed ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " document.row ",
		ObjectID:   " 42 ",
		Channel:    " csvdoc ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "document.committed" || got.ObjectType != "document.row" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "csvdoc" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	//nolint:staticcheck // nil context falls back to Background
	err := hooks.Notify(nil, Event{Verb: VerbDocumentCommitted, ObjectType: ObjectDocument, ObjectID: "default"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbDocumentCommitted, ObjectType: ObjectDocument, ObjectID: "default"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "session-1"})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].ActorID != "session-1" {
		t.Fatalf("expected default actor applied, got %q", capture.Events[0].ActorID)
	}
}

func TestEmitterPreservesExplicitFields(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default", ActorID: "session"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbDocumentUndone,
		ObjectType: ObjectDocument,
		ObjectID:   "default",
		Channel:    "custom",
		ActorID:    "someone",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := capture.Events[0]
	if got.Channel != "custom" || got.ActorID != "someone" {
		t.Fatalf("expected explicit fields preserved, got %+v", got)
	}
	if !got.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", got.OccurredAt)
	}
}

func TestNilEmitterIsDisabled(t *testing.T) {
	var emitter *Emitter
	if emitter.Enabled() {
		t.Fatalf("nil emitter must be disabled")
	}
	if err := emitter.Emit(context.Background(), Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestHooksNotifyReportsFailingHookIndex(t *testing.T) {
	boom := errors.New("boom")
	hooks := Hooks{
		&CaptureHook{},
		HookFunc(func(context.Context, Event) error { return boom }),
	}

	err := hooks.Notify(context.Background(), Event{Verb: VerbDocumentRedone, ObjectType: ObjectDocument, ObjectID: "default"})

	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("expected HookError, got %T %v", err, err)
	}
	if hookErr.Index != 1 || hookErr.Verb != VerbDocumentRedone {
		t.Fatalf("unexpected hook error: %+v", hookErr)
	}
}

func TestHooksNotifyRecoversPanics(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { panic("bad hook") }),
		capture,
	}

	err := hooks.Notify(context.Background(), Event{Verb: VerbDocumentCommitted, ObjectType: ObjectRow, ObjectID: "r1"})
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected later hooks to run, got %d events", len(capture.Events))
	}
}

func TestHooksNotifyIsolatesMetadata(t *testing.T) {
	second := &CaptureHook{}
	hooks := Hooks{
		HookFunc(func(_ context.Context, event Event) error {
			event.Metadata["column"] = "mutated"
			return nil
		}),
		second,
	}

	err := hooks.Notify(context.Background(), Event{
		Verb: VerbDocumentCommitted, ObjectType: ObjectRow, ObjectID: "r1",
		Metadata: map[string]any{"column": "Status"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := second.Events[0].Metadata["column"]; got != "Status" {
		t.Fatalf("expected metadata isolated between hooks, got %v", got)
	}
}

func TestFilteredHook(t *testing.T) {
	capture := &CaptureHook{}
	hook := Filtered(capture, "DOCUMENT.UNDONE")

	for _, verb := range []string{VerbDocumentCommitted, VerbDocumentUndone} {
		if err := hook.Notify(context.Background(), Event{Verb: verb, ObjectType: ObjectDocument, ObjectID: "d"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	last, ok := capture.Last()
	if len(capture.Events) != 1 || !ok || last.Verb != VerbDocumentUndone {
		t.Fatalf("expected only undone event, got %v", capture.Verbs())
	}
	capture.Reset()
	if _, ok := capture.Last(); ok {
		t.Fatalf("expected empty capture after reset")
	}
}

func TestHooksCompact(t *testing.T) {
	if got := (Hooks{nil, nil}).Compact(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	capture := &CaptureHook{}
	if got := (Hooks{nil, capture}).Compact(); len(got) != 1 {
		t.Fatalf("expected one hook, got %d", len(got))
	}
}
