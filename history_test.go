package csvdoc

import "testing"

func snap(label string) Snapshot {
	return Snapshot{Headers: []string{label}}
}

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory(0)
	if h.Depth() != DefaultHistoryDepth {
		t.Fatalf("expected default depth, got %d", h.Depth())
	}
	if _, ok := h.Undo(snap("s0")); ok {
		t.Fatalf("undo on empty history must be a no-op")
	}

	h.Push(snap("s0"))
	h.Push(snap("s1"))
	current := snap("s2")

	prev, ok := h.Undo(current)
	if !ok || prev.Headers[0] != "s1" {
		t.Fatalf("expected s1, got %v", prev.Headers)
	}
	prev, ok = h.Undo(prev)
	if !ok || prev.Headers[0] != "s0" {
		t.Fatalf("expected s0, got %v", prev.Headers)
	}
	if h.CanUndo() {
		t.Fatalf("past should be empty")
	}

	next, ok := h.Redo(prev)
	if !ok || next.Headers[0] != "s1" {
		t.Fatalf("expected redo to s1, got %v", next.Headers)
	}
	next, ok = h.Redo(next)
	if !ok || next.Headers[0] != "s2" {
		t.Fatalf("expected redo to s2, got %v", next.Headers)
	}
	if h.CanRedo() {
		t.Fatalf("future should be empty")
	}
}

func TestHistoryPushClearsFuture(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap("s0"))
	if _, ok := h.Undo(snap("s1")); !ok {
		t.Fatalf("undo failed")
	}
	if !h.CanRedo() {
		t.Fatalf("expected redo entry")
	}
	h.Push(snap("s0"))
	if h.CanRedo() {
		t.Fatalf("push must clear future")
	}
}

func TestHistoryCap(t *testing.T) {
	h := NewHistory(2)
	for _, label := range []string{"s0", "s1", "s2"} {
		h.Push(snap(label))
	}
	past, future := h.Len()
	if past != 2 || future != 0 {
		t.Fatalf("expected 2/0, got %d/%d", past, future)
	}
	prev, _ := h.Undo(snap("s3"))
	prev, _ = h.Undo(prev)
	if prev.Headers[0] != "s1" {
		t.Fatalf("oldest entry should be evicted, got %v", prev.Headers)
	}
	if h.CanUndo() {
		t.Fatalf("expected empty past")
	}
}
