package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/buffer"
	"github.com/jumpcut/jumpcut-engine/internal/edl"
	"github.com/jumpcut/jumpcut-engine/internal/engine"
	"github.com/jumpcut/jumpcut-engine/internal/metrics"
	"github.com/jumpcut/jumpcut-engine/internal/streaming"
	"github.com/jumpcut/jumpcut-engine/internal/timeline"
)

// Snapshot is the queryable view of a session at one instant.
type Snapshot struct {
	SessionID     string       `json:"session_id"`
	EditID        string       `json:"edit_id"`
	State         engine.State `json:"state"`
	GlobalTime    float64      `json:"global_time"`
	ClipIndex     int          `json:"clip_index"`
	TotalDuration float64      `json:"total_duration"`
	Volume        float64      `json:"volume"`
	Buffered      []int        `json:"buffered"`
	CanUndo       bool         `json:"can_undo"`
	CanRedo       bool         `json:"can_redo"`
	Revision      int          `json:"revision"`
	EDLHash       string       `json:"edl_hash"`
	Streaming     bool         `json:"streaming"`
	ManifestURL   string       `json:"manifest_url,omitempty"`
}

// Config wires a session's collaborators.
type Config struct {
	SessionID string
	EditID    string
	Loader    buffer.Loader
	Adapter   *streaming.Adapter
	Ahead     int
	Behind    int
	Tick      time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Session is a live playback session over one edit. It runs a single event
// loop goroutine that owns every piece of mutable state; commands, buffer
// completions, clock ticks and streaming decisions are all serialized through
// it, so the controller and buffer are never touched concurrently.
type Session struct {
	id     string
	editID string
	logger *slog.Logger

	hub     *engine.Hub
	history *edl.History
	buf     *buffer.Manager
	ctrl    *engine.Controller
	adapter *streaming.Adapter
	metrics *metrics.Metrics

	tick time.Duration

	cmds      chan command
	streamRes chan streamResult
	cancel    context.CancelFunc
	done      chan struct{}

	// loop-owned state
	manifest     streaming.Decision
	evaluatedRev int
	lastTick     time.Time
}

type command struct {
	fn    func() error
	reply chan error
}

type streamResult struct {
	revision int
	decision streaming.Decision
}

// New builds and starts a session around an initial decision list.
func New(cfg Config, list *edl.List) *Session {
	if cfg.Tick <= 0 {
		cfg.Tick = 50 * time.Millisecond
	}

	hub := engine.NewHub(cfg.Logger)
	buf := buffer.NewManager(buffer.Config{
		AheadWindow:     cfg.Ahead,
		BehindRetention: cfg.Behind,
		Loader:          cfg.Loader,
		Logger:          cfg.Logger,
	})

	s := &Session{
		id:        cfg.SessionID,
		editID:    cfg.EditID,
		logger:    cfg.Logger,
		hub:       hub,
		history:   edl.NewHistory(list),
		buf:       buf,
		ctrl:      engine.NewController(buf, hub, cfg.Logger),
		adapter:   cfg.Adapter,
		metrics:   cfg.Metrics,
		tick:      cfg.Tick,
		cmds:      make(chan command),
		streamRes: make(chan streamResult, 1),
		done:      make(chan struct{}),
		manifest:  streaming.Decision{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)

	// Prime the timeline on the loop so the first clip starts buffering.
	s.call(func() error {
		s.applyTimeline()
		return nil
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// EditID returns the persisted edit this session edits.
func (s *Session) EditID() string { return s.editID }

// Subscribe registers an observer on the session's event hub. The cancel func
// must be called when the observer goes away.
func (s *Session) Subscribe() (<-chan engine.Event, func()) {
	return s.hub.Subscribe()
}

// Close stops the loop, cancels in-flight loads and ends all subscriptions.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// loop is the session's single thread of control.
func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	defer s.hub.Close()
	defer s.buf.Close()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.lastTick = time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-s.cmds:
			cmd.reply <- cmd.fn()

		case res := <-s.buf.Completions():
			if s.metrics != nil {
				if res.Err != nil {
					s.metrics.IncClipLoadFailures()
				} else {
					s.metrics.IncClipLoads()
				}
			}
			s.ctrl.OnBufferChange(s.buf.Complete(res))

		case res := <-s.streamRes:
			if res.revision == s.history.Revision() {
				s.manifest = res.decision
				s.ctrl.SetContinuous(res.decision.Unified)
			}

		case now := <-ticker.C:
			dt := now.Sub(s.lastTick).Seconds()
			s.lastTick = now
			s.ctrl.Tick(dt)
		}
	}
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
		return <-cmd.reply
	case <-s.done:
		return context.Canceled
	}
}

// --- Playback commands ---

func (s *Session) Play() error {
	return s.call(func() error {
		s.ctrl.Play()
		return nil
	})
}

func (s *Session) Pause() error {
	return s.call(func() error {
		s.ctrl.Pause()
		return nil
	})
}

func (s *Session) Seek(globalTime float64) error {
	return s.call(func() error {
		s.ctrl.Seek(globalTime)
		return nil
	})
}

func (s *Session) SetVolume(v float64) error {
	return s.call(func() error {
		s.ctrl.SetVolume(v)
		return nil
	})
}

// --- EDL commands ---

func (s *Session) ToggleInclusion(decisionID string) error {
	return s.mutate(func() error { return s.history.ToggleInclusion(decisionID) })
}

func (s *Session) Reorder(ids []string) error {
	return s.mutate(func() error { return s.history.Reorder(ids) })
}

func (s *Session) Trim(decisionID string, start, end float64) error {
	return s.mutate(func() error { return s.history.Trim(decisionID, start, end) })
}

func (s *Session) Delete(decisionID string) error {
	return s.mutate(func() error { return s.history.Delete(decisionID) })
}

func (s *Session) UpdateFields(decisionID string, upd edl.FieldUpdate) error {
	return s.mutate(func() error { return s.history.UpdateFields(decisionID, upd) })
}

// Undo reverts the last mutation; reports whether anything was undone.
func (s *Session) Undo() (bool, error) {
	var undone bool
	err := s.call(func() error {
		undone = s.history.Undo()
		if undone {
			s.applyTimeline()
		}
		return nil
	})
	return undone, err
}

// Redo reapplies the last undone mutation.
func (s *Session) Redo() (bool, error) {
	var redone bool
	err := s.call(func() error {
		redone = s.history.Redo()
		if redone {
			s.applyTimeline()
		}
		return nil
	})
	return redone, err
}

// Decisions returns the current decision list.
func (s *Session) Decisions() ([]edl.Decision, error) {
	var out []edl.Decision
	err := s.call(func() error {
		out = s.history.Current().Decisions()
		return nil
	})
	return out, err
}

// Clips returns the current playback clips.
func (s *Session) Clips() ([]edl.Clip, error) {
	var out []edl.Clip
	err := s.call(func() error {
		out = s.history.Current().Clips()
		return nil
	})
	return out, err
}

// Snapshot returns the session's current queryable state.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.call(func() error {
		list := s.history.Current()
		snap = Snapshot{
			SessionID:     s.id,
			EditID:        s.editID,
			State:         s.ctrl.State(),
			GlobalTime:    s.ctrl.GlobalTime(),
			ClipIndex:     s.ctrl.ClipIndex(),
			TotalDuration: list.TotalDuration(),
			Volume:        s.ctrl.Volume(),
			Buffered:      s.buf.BufferedIndexes(),
			CanUndo:       s.history.CanUndo(),
			CanRedo:       s.history.CanRedo(),
			Revision:      s.history.Revision(),
			EDLHash:       list.OrderingHash(),
			Streaming:     s.ctrl.Continuous(),
		}
		if snap.Streaming {
			snap.ManifestURL = s.manifest.ManifestURL
		}
		return nil
	})
	return snap, err
}

// BufferedCount returns how many clips are resident right now.
func (s *Session) BufferedCount() int {
	n := 0
	s.call(func() error {
		n = len(s.buf.BufferedIndexes())
		return nil
	})
	return n
}

// mutate runs one EDL command on the loop. A rejected command returns its
// error without touching the timeline, the history stacks or playback.
func (s *Session) mutate(fn func() error) error {
	return s.call(func() error {
		if err := fn(); err != nil {
			return err
		}
		s.applyTimeline()
		return nil
	})
}

// applyTimeline rebuilds every derived structure after the list changed:
// clips, mapper, buffer residency, controller timeline, and kicks a fresh
// streaming-mode evaluation for the new EDL version.
func (s *Session) applyTimeline() {
	list := s.history.Current()
	clips := list.Clips()

	s.buf.SetClips(clips)
	s.ctrl.SetContinuous(false)
	s.manifest = streaming.Decision{}
	s.ctrl.SetTimeline(timeline.NewMapper(clips))

	rev := s.history.Revision()
	s.hub.Publish(engine.Event{Type: engine.EventEDL, Revision: rev})
	s.hub.Publish(engine.Event{
		Type:    engine.EventHistory,
		CanUndo: s.history.CanUndo(),
		CanRedo: s.history.CanRedo(),
	})

	if s.adapter != nil && s.adapter.Enabled() && len(clips) > 0 {
		s.evaluateStreaming(rev, list.OrderingHash(), clips)
	}
}

// evaluateStreaming resolves unified-stream availability off the loop, once
// per EDL version. A stale result (the list changed again meanwhile) is
// dropped by the loop.
func (s *Session) evaluateStreaming(revision int, hash string, clips []edl.Clip) {
	if revision == s.evaluatedRev && revision != 0 {
		return
	}
	s.evaluatedRev = revision

	go func() {
		dec := s.adapter.Resolve(context.Background(), streaming.ResolveRequest{
			EDLHash: hash,
			Clips:   clips,
		})
		select {
		case s.streamRes <- streamResult{revision: revision, decision: dec}:
		case <-s.done:
		}
	}()
}
