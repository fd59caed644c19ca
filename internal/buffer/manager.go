// Package buffer keeps the clips around the playback cursor loaded ahead of
// need and releases the ones that fall behind. Loads are asynchronous; their
// results come back on a completion channel that the owning session loop
// drains and feeds to Complete, so the manager itself is never touched from
// two goroutines.
package buffer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

// ClipState tracks one clip's readiness for playback.
type ClipState int

const (
	StateNotLoaded ClipState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s ClipState) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	// DefaultAheadWindow is how many clips past the cursor stay resident.
	DefaultAheadWindow = 3
	// DefaultBehindRetention is how many clips behind the cursor stay resident.
	DefaultBehindRetention = 2

	maxLoadAttempts = 2
)

// MediaHandle is an opaque loaded media resource. Release frees it.
type MediaHandle interface {
	Release()
}

// Loader fetches the media for one clip. Implementations must honour ctx
// cancellation; a cancelled load's result is discarded.
type Loader interface {
	Load(ctx context.Context, clip edl.Clip) (MediaHandle, error)
}

// ClipLoadError is surfaced after a clip has failed its retry and stays failed
// until the list changes.
type ClipLoadError struct {
	Index      int
	DecisionID string
	Attempts   int
	Err        error
}

func (e *ClipLoadError) Error() string {
	return fmt.Sprintf("clip %d (decision %s) failed to load after %d attempts: %v", e.Index, e.DecisionID, e.Attempts, e.Err)
}

func (e *ClipLoadError) Unwrap() error {
	return e.Err
}

// LoadResult is one finished load, delivered on the completion channel.
type LoadResult struct {
	Index      int
	Generation int
	Handle     MediaHandle
	Err        error
}

type clipEntry struct {
	clip     edl.Clip
	state    ClipState
	handle   MediaHandle
	attempts int
	cancel   context.CancelFunc
	lastErr  error
}

// Config holds the manager's tunables.
type Config struct {
	AheadWindow     int
	BehindRetention int
	Loader          Loader
	Logger          *slog.Logger
}

// Manager is the look-ahead/look-behind readiness cache, keyed by clip index.
type Manager struct {
	cfg         Config
	entries     []clipEntry
	generation  int
	completions chan LoadResult
}

// NewManager builds a manager with defaults filled in for zero config values.
func NewManager(cfg Config) *Manager {
	if cfg.AheadWindow <= 0 {
		cfg.AheadWindow = DefaultAheadWindow
	}
	if cfg.BehindRetention < 0 {
		cfg.BehindRetention = DefaultBehindRetention
	}
	return &Manager{
		cfg:         cfg,
		completions: make(chan LoadResult, 64),
	}
}

// Completions is the channel load results arrive on. The owner must drain it
// and pass each result to Complete.
func (m *Manager) Completions() <-chan LoadResult {
	return m.completions
}

// SetClips replaces the clip list after an EDL change. All in-flight loads are
// cancelled, all handles released and all failure marks cleared.
func (m *Manager) SetClips(clips []edl.Clip) {
	for i := range m.entries {
		m.releaseEntry(i)
	}
	m.generation++
	m.entries = make([]clipEntry, len(clips))
	for i, c := range clips {
		m.entries[i] = clipEntry{clip: c}
	}
}

// EnsureBuffered starts loads for every clip in [current, current+ahead] that
// is not already resident or in flight. Loads are independent and may complete
// out of order.
func (m *Manager) EnsureBuffered(current int) {
	if current < 0 {
		current = 0
	}
	for i := current; i <= current+m.cfg.AheadWindow && i < len(m.entries); i++ {
		m.startLoad(i)
	}
}

// EvictStale releases every clip outside the retention window around current,
// cancelling in-flight loads for evicted indexes.
func (m *Manager) EvictStale(current int) {
	lo := current - m.cfg.BehindRetention
	hi := current + m.cfg.AheadWindow
	for i := range m.entries {
		if i >= lo && i <= hi {
			continue
		}
		if m.entries[i].state == StateLoading || m.entries[i].state == StateReady {
			m.releaseEntry(i)
			m.entries[i] = clipEntry{clip: m.entries[i].clip}
		}
	}
}

// Complete applies one load result. For a first failure the load is retried
// immediately; a second failure marks the clip failed and returns a
// ClipLoadError for the caller to surface. Stale results from a superseded
// generation or an evicted slot are dropped.
func (m *Manager) Complete(res LoadResult) *ClipLoadError {
	if res.Generation != m.generation || res.Index < 0 || res.Index >= len(m.entries) {
		if res.Handle != nil {
			res.Handle.Release()
		}
		return nil
	}
	e := &m.entries[res.Index]
	if e.state != StateLoading {
		// Evicted while in flight.
		if res.Handle != nil {
			res.Handle.Release()
		}
		return nil
	}

	e.cancel = nil
	if res.Err == nil {
		e.state = StateReady
		e.handle = res.Handle
		e.lastErr = nil
		if m.cfg.Logger != nil {
			m.cfg.Logger.Debug("clip buffered", "clip_index", res.Index)
		}
		return nil
	}

	e.lastErr = res.Err
	if e.attempts < maxLoadAttempts {
		if m.cfg.Logger != nil {
			m.cfg.Logger.Warn("clip load failed, retrying", "clip_index", res.Index, "error", res.Err)
		}
		e.state = StateNotLoaded
		m.startLoad(res.Index)
		return nil
	}

	e.state = StateFailed
	if m.cfg.Logger != nil {
		m.cfg.Logger.Error("clip load failed permanently", "clip_index", res.Index, "attempts", e.attempts, "error", res.Err)
	}
	return &ClipLoadError{
		Index:      res.Index,
		DecisionID: e.clip.DecisionID,
		Attempts:   e.attempts,
		Err:        res.Err,
	}
}

// State returns a clip's readiness, StateNotLoaded for out-of-range indexes.
func (m *Manager) State(index int) ClipState {
	if index < 0 || index >= len(m.entries) {
		return StateNotLoaded
	}
	return m.entries[index].state
}

// Ready reports whether a clip may be handed over for playback.
func (m *Manager) Ready(index int) bool {
	return m.State(index) == StateReady
}

// Handle returns the loaded media for a Ready clip, nil otherwise.
func (m *Manager) Handle(index int) MediaHandle {
	if !m.Ready(index) {
		return nil
	}
	return m.entries[index].handle
}

// BufferedIndexes returns the indexes currently Ready, in order.
func (m *Manager) BufferedIndexes() []int {
	var out []int
	for i := range m.entries {
		if m.entries[i].state == StateReady {
			out = append(out, i)
		}
	}
	return out
}

// Close cancels everything and releases all handles.
func (m *Manager) Close() {
	for i := range m.entries {
		m.releaseEntry(i)
	}
	m.generation++
}

func (m *Manager) startLoad(index int) {
	e := &m.entries[index]
	if e.state != StateNotLoaded {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.state = StateLoading
	e.cancel = cancel
	e.attempts++

	clip := e.clip
	gen := m.generation
	go func() {
		handle, err := m.cfg.Loader.Load(ctx, clip)
		// The load was cancelled by eviction or Close; nobody will drain
		// the result, so drop it here instead of blocking on the send.
		select {
		case <-ctx.Done():
			if handle != nil {
				handle.Release()
			}
			return
		default:
		}
		select {
		case m.completions <- LoadResult{Index: index, Generation: gen, Handle: handle, Err: err}:
		case <-ctx.Done():
			if handle != nil {
				handle.Release()
			}
		}
	}()
}

func (m *Manager) releaseEntry(index int) {
	e := &m.entries[index]
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.handle != nil {
		e.handle.Release()
		e.handle = nil
	}
}
