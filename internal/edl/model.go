// Package edl holds the edit decision list: the ordered, mutable set of
// source-video time ranges that defines a non-destructive edit. All mutations
// go through History so every change is undoable.
package edl

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MinClipSeconds is the shortest duration a decision may be trimmed to.
const MinClipSeconds = 0.1

// Decision is a single entry in the edit decision list: one transcript-derived
// time range of the source video plus its inclusion and provenance flags.
type Decision struct {
	ID             string  `json:"id"`
	OrderIndex     int     `json:"order_index"`
	SegmentID      string  `json:"segment_id"`
	SourceRef      string  `json:"source_ref"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	TranscriptText string  `json:"transcript_text"`
	IsIncluded     bool    `json:"is_included"`
	IsAISelected   bool    `json:"is_ai_selected"`
	UserModified   bool    `json:"user_modified"`
}

// Duration returns the decision's source duration in seconds.
func (d Decision) Duration() float64 {
	return d.EndTime - d.StartTime
}

// Clip is the ephemeral playback unit derived from one included decision.
// Clips are regenerated whenever the included subset or ordering changes.
type Clip struct {
	Index      int     `json:"index"`
	DecisionID string  `json:"decision_id"`
	SourceRef  string  `json:"source_ref"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	MediaRef   string  `json:"media_ref"`
}

// List is an ordered edit decision list. It is owned by exactly one editing
// session; callers mutate it only through History.
type List struct {
	decisions []Decision
	version   int
}

// NewList builds a list from initial decisions (typically an AI-selection
// result), sorts them by order index and reindexes to a contiguous range.
func NewList(decisions []Decision) (*List, error) {
	l := &List{decisions: make([]Decision, len(decisions))}
	copy(l.decisions, decisions)

	seen := make(map[string]bool, len(decisions))
	for i := range l.decisions {
		d := &l.decisions[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate decision id %s", d.ID)
		}
		seen[d.ID] = true
		if err := validateRange(d.StartTime, d.EndTime); err != nil {
			return nil, fmt.Errorf("decision %s: %w", d.ID, err)
		}
	}

	sort.SliceStable(l.decisions, func(i, j int) bool {
		return l.decisions[i].OrderIndex < l.decisions[j].OrderIndex
	})
	l.reindex()
	return l, nil
}

// Version is bumped on every mutation. Downstream caches (timeline mapper,
// buffer manager, streaming adapter) invalidate when it changes.
func (l *List) Version() int {
	return l.version
}

// Len returns the number of decisions, included or not.
func (l *List) Len() int {
	return len(l.decisions)
}

// Decisions returns a copy of all decisions in order.
func (l *List) Decisions() []Decision {
	out := make([]Decision, len(l.decisions))
	copy(out, l.decisions)
	return out
}

// Get returns the decision with the given id, or nil if absent.
func (l *List) Get(id string) *Decision {
	for i := range l.decisions {
		if l.decisions[i].ID == id {
			d := l.decisions[i]
			return &d
		}
	}
	return nil
}

// PlaybackList returns the included decisions sorted by order index. The
// result is derived, never mutated in place.
func (l *List) PlaybackList() []Decision {
	var out []Decision
	for _, d := range l.decisions {
		if d.IsIncluded {
			out = append(out, d)
		}
	}
	return out
}

// Clips derives the playback clips for the current included subset.
func (l *List) Clips() []Clip {
	included := l.PlaybackList()
	clips := make([]Clip, 0, len(included))
	for i, d := range included {
		clips = append(clips, Clip{
			Index:      i,
			DecisionID: d.ID,
			SourceRef:  d.SourceRef,
			StartTime:  d.StartTime,
			EndTime:    d.EndTime,
			Duration:   d.Duration(),
			MediaRef:   d.SourceRef,
		})
	}
	return clips
}

// TotalDuration sums the durations of all included decisions.
func (l *List) TotalDuration() float64 {
	var total float64
	for _, d := range l.decisions {
		if d.IsIncluded {
			total += d.Duration()
		}
	}
	return total
}

// ToggleInclusion flips a decision in or out of the playback list.
func (l *List) ToggleInclusion(id string) error {
	d := l.find(id)
	if d == nil {
		return &NotFoundError{DecisionID: id}
	}
	d.IsIncluded = !d.IsIncluded
	d.UserModified = true
	l.reindex()
	l.version++
	return nil
}

// Reorder applies a new ordering. ids must be a permutation of every decision
// id in the list; order indexes are reassigned contiguously.
func (l *List) Reorder(ids []string) error {
	if len(ids) != len(l.decisions) {
		return fmt.Errorf("reorder: got %d ids, list has %d decisions", len(ids), len(l.decisions))
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; dup {
			return fmt.Errorf("reorder: duplicate id %s", id)
		}
		pos[id] = i
	}
	for i := range l.decisions {
		p, ok := pos[l.decisions[i].ID]
		if !ok {
			return &NotFoundError{DecisionID: l.decisions[i].ID}
		}
		l.decisions[i].OrderIndex = p
	}
	sort.SliceStable(l.decisions, func(i, j int) bool {
		return l.decisions[i].OrderIndex < l.decisions[j].OrderIndex
	})
	l.reindex()
	l.version++
	return nil
}

// Trim adjusts a decision's source range. The new range is validated before
// anything is touched, so a rejected trim leaves the list unchanged.
func (l *List) Trim(id string, start, end float64) error {
	d := l.find(id)
	if d == nil {
		return &NotFoundError{DecisionID: id}
	}
	if err := validateRange(start, end); err != nil {
		return err
	}
	d.StartTime = start
	d.EndTime = end
	d.UserModified = true
	l.version++
	return nil
}

// Delete removes a decision entirely.
func (l *List) Delete(id string) error {
	for i := range l.decisions {
		if l.decisions[i].ID == id {
			l.decisions = append(l.decisions[:i], l.decisions[i+1:]...)
			l.reindex()
			l.version++
			return nil
		}
	}
	return &NotFoundError{DecisionID: id}
}

// FieldUpdate carries optional per-field changes for UpdateFields. Nil fields
// are left untouched.
type FieldUpdate struct {
	TranscriptText *string
	StartTime      *float64
	EndTime        *float64
	IsIncluded     *bool
}

// UpdateFields applies a partial update to one decision. Time changes are
// validated as a pair against the same rules as Trim.
func (l *List) UpdateFields(id string, upd FieldUpdate) error {
	d := l.find(id)
	if d == nil {
		return &NotFoundError{DecisionID: id}
	}

	start, end := d.StartTime, d.EndTime
	if upd.StartTime != nil {
		start = *upd.StartTime
	}
	if upd.EndTime != nil {
		end = *upd.EndTime
	}
	if err := validateRange(start, end); err != nil {
		return err
	}

	structural := false
	d.StartTime, d.EndTime = start, end
	if upd.TranscriptText != nil {
		d.TranscriptText = *upd.TranscriptText
	}
	if upd.IsIncluded != nil && *upd.IsIncluded != d.IsIncluded {
		d.IsIncluded = *upd.IsIncluded
		structural = true
	}
	d.UserModified = true
	if structural {
		l.reindex()
	}
	l.version++
	return nil
}

// Clone returns a deep copy sharing no state with the receiver.
func (l *List) Clone() *List {
	c := &List{
		decisions: make([]Decision, len(l.decisions)),
		version:   l.version,
	}
	copy(c.decisions, l.decisions)
	return c
}

// Equal reports whether two lists hold identical decisions in the same order.
func (l *List) Equal(other *List) bool {
	if other == nil || len(l.decisions) != len(other.decisions) {
		return false
	}
	for i := range l.decisions {
		if l.decisions[i] != other.decisions[i] {
			return false
		}
	}
	return true
}

func (l *List) find(id string) *Decision {
	for i := range l.decisions {
		if l.decisions[i].ID == id {
			return &l.decisions[i]
		}
	}
	return nil
}

// reindex reassigns contiguous order indexes across the whole list, preserving
// relative order. Excluded decisions keep their slot so re-including one puts
// it back where it was.
func (l *List) reindex() {
	for i := range l.decisions {
		l.decisions[i].OrderIndex = i
	}
}

func validateRange(start, end float64) error {
	if start < 0 || start >= end || end-start < MinClipSeconds {
		return &InvalidRangeError{Start: start, End: end}
	}
	return nil
}
