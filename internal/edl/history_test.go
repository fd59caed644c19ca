package edl

import (
	"errors"
	"testing"
)

func newHistory(t *testing.T) *History {
	t.Helper()
	return NewHistory(mustList(t))
}

func TestHistory_ApplyAndUndo(t *testing.T) {
	h := newHistory(t)
	original := h.Current().Clone()

	if h.CanUndo() || h.CanRedo() {
		t.Fatal("fresh history reports pending undo/redo")
	}

	if err := h.ToggleInclusion("d1"); err != nil {
		t.Fatalf("ToggleInclusion() error = %v", err)
	}
	if !h.CanUndo() {
		t.Fatal("CanUndo() = false after mutation")
	}
	if len(h.Current().PlaybackList()) != 2 {
		t.Errorf("playback len = %d, want 2", len(h.Current().PlaybackList()))
	}

	if !h.Undo() {
		t.Fatal("Undo() = false with pending undo")
	}
	if !h.Current().Equal(original) {
		t.Error("undo did not restore the original list")
	}
	if !h.CanRedo() {
		t.Error("CanRedo() = false after undo")
	}

	if !h.Redo() {
		t.Fatal("Redo() = false with pending redo")
	}
	if len(h.Current().PlaybackList()) != 2 {
		t.Error("redo did not reapply the mutation")
	}
}

func TestHistory_RejectedCommandLeavesStateUntouched(t *testing.T) {
	h := newHistory(t)
	if err := h.Trim("d2", 5.5, 7.5); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	before := h.Current().Clone()

	err := h.Trim("d2", -1, 0.5)
	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("error = %v, want InvalidRangeError", err)
	}

	if !h.Current().Equal(before) {
		t.Error("rejected command mutated the current list")
	}
	if !h.CanUndo() {
		t.Error("rejected command dropped the undo stack")
	}
	if h.CanRedo() {
		t.Error("rejected command created a redo entry")
	}
}

func TestHistory_NewMutationClearsRedo(t *testing.T) {
	h := newHistory(t)

	if err := h.ToggleInclusion("d1"); err != nil {
		t.Fatalf("ToggleInclusion() error = %v", err)
	}
	if err := h.ToggleInclusion("d2"); err != nil {
		t.Fatalf("ToggleInclusion() error = %v", err)
	}
	h.Undo()
	if !h.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}

	if err := h.Delete("d4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if h.CanRedo() {
		t.Error("new mutation did not clear the redo stack")
	}
}

func TestHistory_UndoRedoAtBoundaries(t *testing.T) {
	h := newHistory(t)
	if h.Undo() {
		t.Error("Undo() = true on empty stack")
	}
	if h.Redo() {
		t.Error("Redo() = true on empty stack")
	}
}

func TestHistory_RevisionMonotonic(t *testing.T) {
	h := newHistory(t)
	seen := map[int]bool{h.Revision(): true}

	steps := []func() bool{
		func() bool { return h.ToggleInclusion("d1") == nil },
		func() bool { return h.Trim("d2", 5.5, 7.5) == nil },
		func() bool { return h.Undo() },
		func() bool { return h.Undo() },
		func() bool { return h.Redo() },
	}
	for i, step := range steps {
		if !step() {
			t.Fatalf("step %d failed", i)
		}
		r := h.Revision()
		if seen[r] {
			t.Fatalf("revision %d repeated at step %d", r, i)
		}
		seen[r] = true
	}
}

func TestHistory_UndoDepth(t *testing.T) {
	h := newHistory(t)

	for i := 0; i < 5; i++ {
		if err := h.ToggleInclusion("d1"); err != nil {
			t.Fatalf("mutation %d error = %v", i, err)
		}
	}
	undone := 0
	for h.Undo() {
		undone++
	}
	if undone != 5 {
		t.Errorf("undo depth = %d, want 5", undone)
	}
	if len(h.Current().PlaybackList()) != 3 {
		t.Error("full undo did not restore the initial inclusion set")
	}
}

func TestOrderingHash(t *testing.T) {
	h := newHistory(t)
	base := h.Current().OrderingHash()

	if base == "" || len(base) != 40 {
		t.Fatalf("OrderingHash() = %q, want 40 hex chars", base)
	}

	// Hash depends only on the included, ordered ranges: editing the
	// transcript must not change it, trimming must.
	text := "new words"
	if err := h.UpdateFields("d1", FieldUpdate{TranscriptText: &text}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if got := h.Current().OrderingHash(); got != base {
		t.Error("transcript edit changed the ordering hash")
	}

	if err := h.Trim("d1", 0.25, 1.75); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	trimmed := h.Current().OrderingHash()
	if trimmed == base {
		t.Error("trim did not change the ordering hash")
	}

	h.Undo()
	if got := h.Current().OrderingHash(); got != base {
		t.Error("undo did not restore the ordering hash")
	}

	// Toggling an excluded decision in changes the playback content.
	if err := h.ToggleInclusion("d3"); err != nil {
		t.Fatalf("ToggleInclusion() error = %v", err)
	}
	if got := h.Current().OrderingHash(); got == base {
		t.Error("including a decision did not change the ordering hash")
	}
}
