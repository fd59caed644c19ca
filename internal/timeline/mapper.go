// Package timeline converts between the single global edited-timeline
// coordinate and (clip index, local time) pairs for the current playback list.
package timeline

import "github.com/jumpcut/jumpcut-engine/internal/edl"

// NoClip is the index returned when the playback list is empty.
const NoClip = -1

// Mapper precomputes cumulative clip durations for one snapshot of the
// playback list. Build a new Mapper whenever the list changes; lookups on an
// existing Mapper are pure.
type Mapper struct {
	clips      []edl.Clip
	cumulative []float64 // cumulative[i] = sum of durations before clip i
	total      float64
}

// NewMapper builds a mapper over the given clips, in playback order.
func NewMapper(clips []edl.Clip) *Mapper {
	m := &Mapper{
		clips:      clips,
		cumulative: make([]float64, len(clips)),
	}
	var sum float64
	for i, c := range clips {
		m.cumulative[i] = sum
		sum += c.Duration
	}
	m.total = sum
	return m
}

// TotalDuration returns the summed duration of all clips.
func (m *Mapper) TotalDuration() float64 {
	return m.total
}

// ClipCount returns the number of clips in this snapshot.
func (m *Mapper) ClipCount() int {
	return len(m.clips)
}

// Clip returns the clip at index, or nil if out of range.
func (m *Mapper) Clip(index int) *edl.Clip {
	if index < 0 || index >= len(m.clips) {
		return nil
	}
	c := m.clips[index]
	return &c
}

// GlobalToLocal maps a global time to the containing clip and the offset
// within it. A time exactly on a clip boundary belongs to the next clip's
// start, so forward seeks are deterministic. Times at or past the end clamp to
// the last clip's end; an empty list returns (NoClip, 0).
func (m *Mapper) GlobalToLocal(t float64) (index int, local float64) {
	if len(m.clips) == 0 {
		return NoClip, 0
	}
	if t < 0 {
		return 0, 0
	}
	if t >= m.total {
		last := len(m.clips) - 1
		return last, m.clips[last].Duration
	}
	// Walk from the back so a boundary time lands on the later clip.
	for i := len(m.clips) - 1; i >= 0; i-- {
		if t >= m.cumulative[i] {
			return i, t - m.cumulative[i]
		}
	}
	return 0, t
}

// LocalToGlobal maps a (clip index, local time) pair back to global time.
// Out-of-range indexes clamp to the nearest end of the timeline.
func (m *Mapper) LocalToGlobal(index int, local float64) float64 {
	if len(m.clips) == 0 || index < 0 {
		return 0
	}
	if index >= len(m.clips) {
		return m.total
	}
	return m.cumulative[index] + local
}

// CumulativeBefore returns the summed duration of all clips before index.
func (m *Mapper) CumulativeBefore(index int) float64 {
	if index < 0 || len(m.clips) == 0 {
		return 0
	}
	if index >= len(m.clips) {
		return m.total
	}
	return m.cumulative[index]
}

// Clamp bounds a requested global time to the valid seekable range. Seeks
// outside the timeline are never an error, just clamped.
func (m *Mapper) Clamp(t float64) float64 {
	if t < 0 || len(m.clips) == 0 {
		return 0
	}
	if t >= m.total {
		return m.total
	}
	return t
}
