package edl

// History wraps a List with snapshot-based undo/redo. Every mutation runs
// against a clone of the current list; only on success does the clone replace
// it, so callers never observe a partially applied command and a rejected
// command leaves both stacks untouched.
//
// Snapshots are whole-list copies. Lists are tens to low hundreds of
// decisions, so the memory cost is negligible next to the simplicity.
type History struct {
	current  *List
	undo     []*List
	redo     []*List
	revision int
}

// NewHistory starts a history around the given list. The history takes
// ownership; callers must not mutate the list directly afterwards.
func NewHistory(list *List) *History {
	return &History{current: list}
}

// Current returns the live list. Read-only access only.
func (h *History) Current() *List {
	return h.current
}

// Revision increments on every Apply, Undo and Redo. Undo rolls the list's own
// version backwards, so downstream caches key off the revision instead.
func (h *History) Revision() int {
	return h.revision
}

// Apply runs one mutating command. On success the pre-mutation snapshot is
// pushed onto the undo stack and the redo stack is cleared.
func (h *History) Apply(mutate func(*List) error) error {
	next := h.current.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	h.undo = append(h.undo, h.current)
	h.redo = h.redo[:0]
	h.current = next
	h.revision++
	return nil
}

// ToggleInclusion flips a decision's inclusion flag.
func (h *History) ToggleInclusion(id string) error {
	return h.Apply(func(l *List) error { return l.ToggleInclusion(id) })
}

// Reorder applies a new full ordering of decision ids.
func (h *History) Reorder(ids []string) error {
	return h.Apply(func(l *List) error { return l.Reorder(ids) })
}

// Trim adjusts one decision's source range.
func (h *History) Trim(id string, start, end float64) error {
	return h.Apply(func(l *List) error { return l.Trim(id, start, end) })
}

// Delete removes a decision.
func (h *History) Delete(id string) error {
	return h.Apply(func(l *List) error { return l.Delete(id) })
}

// UpdateFields applies a partial update to one decision.
func (h *History) UpdateFields(id string, upd FieldUpdate) error {
	return h.Apply(func(l *List) error { return l.UpdateFields(id, upd) })
}

// Undo reverts the most recent mutation. Returns false if there is nothing to
// undo.
func (h *History) Undo() bool {
	if len(h.undo) == 0 {
		return false
	}
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, h.current)
	h.current = last
	h.revision++
	return true
}

// Redo reapplies the most recently undone mutation. Returns false if there is
// nothing to redo.
func (h *History) Redo() bool {
	if len(h.redo) == 0 {
		return false
	}
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, h.current)
	h.current = last
	h.revision++
	return true
}

// CanUndo reports whether the undo stack is non-empty.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}
