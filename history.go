package csvdoc

// DefaultHistoryDepth bounds the number of undoable commits.
const DefaultHistoryDepth = 100

// History holds undo and redo stacks of snapshots. past keeps the most recent
// entry last; future keeps the next redo first. It is not safe for concurrent
// use; the Engine serialises access.
type History struct {
	past   []Snapshot
	future []Snapshot
	depth  int
}

// NewHistory returns a history retaining at most depth undo entries. A depth
// below 1 uses DefaultHistoryDepth.
func NewHistory(depth int) *History {
	if depth < 1 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// Push records previous as the newest undo entry and clears the redo stack.
// The oldest entries are evicted beyond the depth cap.
func (h *History) Push(previous Snapshot) {
	h.past = append(h.past, previous)
	if overflow := len(h.past) - h.depth; overflow > 0 {
		clear(h.past[:overflow])
		h.past = h.past[overflow:]
	}
	clear(h.future)
	h.future = nil
}

// Undo pops the newest undo entry and pushes current onto the front of the
// redo stack. ok is false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.past) == 0 {
		return Snapshot{}, false
	}
	last := len(h.past) - 1
	previous := h.past[last]
	h.past[last] = Snapshot{}
	h.past = h.past[:last]
	h.future = append([]Snapshot{current}, h.future...)
	return previous, true
}

// Redo shifts the first redo entry and pushes current onto the undo stack.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.future) == 0 {
		return Snapshot{}, false
	}
	next := h.future[0]
	h.future[0] = Snapshot{}
	h.future = h.future[1:]
	h.past = append(h.past, current)
	if overflow := len(h.past) - h.depth; overflow > 0 {
		h.past = h.past[overflow:]
	}
	return next, true
}

// Reset drops both stacks.
func (h *History) Reset() {
	h.past = nil
	h.future = nil
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }

func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Len reports the sizes of the undo and redo stacks.
func (h *History) Len() (past, future int) {
	return len(h.past), len(h.future)
}

// Depth returns the undo cap.
func (h *History) Depth() int {
	return h.depth
}

// headerSet collects every header referenced by a retained snapshot.
func (h *History) headerSet(into map[string]struct{}) {
	for _, stack := range [][]Snapshot{h.past, h.future} {
		for _, snap := range stack {
			for _, name := range snap.Headers {
				into[name] = struct{}{}
			}
		}
	}
}
