package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/buffer"
	"github.com/jumpcut/jumpcut-engine/internal/timeline"
)

// State is the playback state machine's position.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateSeeking State = "seeking"
	StateEnded   State = "ended"
	StateError   State = "error"
)

// ErrEmptyTimeline is reported when playback is requested with no included
// decisions. It forces the empty state, never a crash.
var ErrEmptyTimeline = errors.New("playback requested on empty timeline")

const (
	// minEmitInterval bounds how often time updates are published.
	minEmitInterval = 100 * time.Millisecond
	// emitDriftSeconds forces an update when position moved this far since
	// the last emission regardless of wall time.
	emitDriftSeconds = 0.5
)

type pendingSeek struct {
	target float64
	resume bool
}

// Controller is the playback state machine. It owns the active clip handle
// exclusively; all other resident clips stay with the buffer manager. The
// controller is not safe for concurrent use: the owning session loop calls
// every method from one goroutine.
type Controller struct {
	mapper *timeline.Mapper
	buf    *buffer.Manager
	hub    *Hub
	logger *slog.Logger

	state      State
	current    int     // active clip index
	local      float64 // seconds into the active clip
	volume     float64
	intendPlay bool
	seek       *pendingSeek

	// continuous disables per-clip readiness gating while a unified
	// manifest stream is active.
	continuous bool

	lastEmitAt   time.Time
	lastEmitTime float64
	emittedOnce  bool
}

// NewController builds a controller over an empty timeline.
func NewController(buf *buffer.Manager, hub *Hub, logger *slog.Logger) *Controller {
	return &Controller{
		mapper: timeline.NewMapper(nil),
		buf:    buf,
		hub:    hub,
		logger: logger,
		state:  StateIdle,
		volume: 1.0,
	}
}

// State returns the current playback state.
func (c *Controller) State() State {
	return c.state
}

// GlobalTime returns the current position on the edited timeline.
func (c *Controller) GlobalTime() float64 {
	return c.mapper.LocalToGlobal(c.current, c.local)
}

// ClipIndex returns the active clip index, timeline.NoClip when empty.
func (c *Controller) ClipIndex() int {
	if c.mapper.ClipCount() == 0 {
		return timeline.NoClip
	}
	return c.current
}

// Volume returns the current volume in [0, 1].
func (c *Controller) Volume() float64 {
	return c.volume
}

// SetTimeline swaps in a new timeline snapshot after an EDL change. The
// playback position is preserved where possible, clamped otherwise. An empty
// timeline while playback is intended is the unrecoverable condition that
// parks the machine in Error; it recovers to Idle as soon as a valid timeline
// arrives.
func (c *Controller) SetTimeline(m *timeline.Mapper) {
	prevGlobal := c.GlobalTime()
	c.mapper = m
	c.seek = nil

	if m.ClipCount() == 0 {
		c.current = 0
		c.local = 0
		if c.intendPlay {
			c.intendPlay = false
			c.setState(StateError)
			c.hub.Publish(Event{Type: EventError, Message: ErrEmptyTimeline.Error()})
		} else {
			c.setState(StateIdle)
		}
		return
	}

	if c.state == StateError || c.state == StateIdle || c.state == StateEnded {
		c.current = 0
		c.local = 0
		c.setState(StateLoading)
	} else {
		c.current, c.local = m.GlobalToLocal(m.Clamp(prevGlobal))
		if !c.continuous && !c.buf.Ready(c.current) {
			c.setState(StateLoading)
		}
	}
	c.prime()
	c.emitTime(true)
}

// Play requests playback. If the active clip is not ready yet the machine
// stays in Loading and remembers the intent; it transitions to Playing on its
// own once the clip arrives.
func (c *Controller) Play() {
	if c.mapper.ClipCount() == 0 {
		c.setState(StateError)
		c.hub.Publish(Event{Type: EventError, Message: ErrEmptyTimeline.Error()})
		return
	}
	c.intendPlay = true

	switch c.state {
	case StateEnded:
		c.current = 0
		c.local = 0
		fallthrough
	case StateReady, StatePaused, StateLoading, StateIdle:
		if c.clipPlayable(c.current) {
			c.setState(StatePlaying)
			c.emitTime(true)
		} else {
			c.setState(StateLoading)
		}
		c.prime()
	}
}

// Pause stops playback and clears the play intent.
func (c *Controller) Pause() {
	c.intendPlay = false
	if c.state == StatePlaying || c.state == StateLoading {
		c.setState(StatePaused)
	}
}

// Seek jumps to a global time, clamped to the timeline. A seek arriving while
// one is pending replaces the target; the resume decision stays the one
// recorded when seeking began.
func (c *Controller) Seek(globalTime float64) {
	if c.mapper.ClipCount() == 0 {
		return
	}
	target := c.mapper.Clamp(globalTime)

	resume := c.intendPlay || c.state == StatePlaying
	if c.seek != nil {
		// Debounce: keep the original resume decision.
		resume = c.seek.resume
	}
	c.seek = &pendingSeek{target: target, resume: resume}
	c.setState(StateSeeking)

	idx, _ := c.mapper.GlobalToLocal(target)
	c.prepareAround(idx)
	c.tryCompleteSeek()
}

// SetVolume clamps and stores the volume.
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.volume = v
	c.hub.Publish(Event{Type: EventVolume, Volume: v})
}

// SetContinuous toggles unified-stream mode. While on, clip readiness is not
// gated on the buffer manager and boundary advances never stall.
func (c *Controller) SetContinuous(on bool) {
	if c.continuous == on {
		return
	}
	c.continuous = on
	c.hub.Publish(Event{Type: EventMode, Streaming: on})
	if on && c.state == StateLoading {
		if c.intendPlay {
			c.setState(StatePlaying)
		} else {
			c.setState(StateReady)
		}
	}
}

// Continuous reports whether unified-stream mode is active.
func (c *Controller) Continuous() bool {
	return c.continuous
}

// Tick advances the playhead by dt seconds of wall time. It is the single
// place position moves forward, so emitted times within one clip are strictly
// increasing.
func (c *Controller) Tick(dt float64) {
	if c.state != StatePlaying || dt <= 0 {
		return
	}
	c.local += dt

	switched := false
	for {
		clip := c.mapper.Clip(c.current)
		if clip == nil {
			return
		}
		if c.local < clip.Duration {
			break
		}
		overrun := c.local - clip.Duration

		next := c.current + 1
		if next >= c.mapper.ClipCount() {
			c.finish()
			return
		}
		if !c.clipPlayable(next) {
			if c.buf.State(next) == buffer.StateFailed {
				// Skip the unplayable clip once and keep going.
				c.skipFailed(next, overrun)
				return
			}
			// Pin at the boundary and buffer visibly. The overrun is
			// kept so playback resumes where it would have been, not
			// at the clip head; emission waits for readiness.
			c.current = next
			c.local = overrun
			c.setState(StateLoading)
			c.prime()
			return
		}
		c.current = next
		c.local = overrun
		switched = true
		c.hub.Publish(Event{Type: EventClip, ClipIndex: next, DecisionID: c.mapper.Clip(next).DecisionID})
		c.prime()
	}

	c.emitTime(switched)
}

// OnBufferChange reevaluates pending work after buffer state moved: completes
// a pending seek, resumes intended playback, or surfaces a dead clip.
func (c *Controller) OnBufferChange(loadErr *buffer.ClipLoadError) {
	if loadErr != nil {
		c.hub.Publish(Event{Type: EventError, ClipIndex: loadErr.Index, Message: loadErr.Error()})
		if loadErr.Index == c.current && (c.state == StateLoading || c.state == StatePlaying) {
			c.skipFailed(c.current, 0)
			return
		}
	}

	if c.seek != nil {
		c.tryCompleteSeek()
		return
	}

	if c.state == StateLoading && c.clipPlayable(c.current) {
		if c.intendPlay {
			c.setState(StatePlaying)
		} else {
			c.setState(StateReady)
		}
		c.emitTime(true)
	}

	c.hub.Publish(Event{Type: EventBuffer, Buffered: c.buf.BufferedIndexes()})
}

func (c *Controller) tryCompleteSeek() {
	if c.seek == nil {
		return
	}
	idx, local := c.mapper.GlobalToLocal(c.seek.target)
	if idx == timeline.NoClip {
		c.seek = nil
		c.setState(StateIdle)
		return
	}

	// A permanently failed target can never become playable, so the seek
	// retargets to the next clip that can still load, the same way a dead
	// clip is skipped at a playback boundary.
	if !c.continuous && c.buf.State(idx) == buffer.StateFailed {
		deadIdx := idx
		for idx < c.mapper.ClipCount() && c.buf.State(idx) == buffer.StateFailed {
			idx++
		}
		if idx >= c.mapper.ClipCount() {
			// Nothing after the dead clip is loadable.
			c.seek = nil
			c.intendPlay = false
			c.current = deadIdx
			c.local = 0
			c.setState(StatePaused)
			c.emitTime(true)
			return
		}
		local = 0
		c.seek.target = c.mapper.LocalToGlobal(idx, 0)
	}

	if !c.clipPlayable(idx) {
		c.prepareAround(idx)
		return
	}

	resume := c.seek.resume
	c.seek = nil
	c.current = idx
	c.local = local
	c.intendPlay = resume
	if resume {
		c.setState(StatePlaying)
	} else {
		c.setState(StatePaused)
	}
	c.prime()
	c.emitTime(true)
}

// skipFailed advances past a permanently failed clip. The skip is attempted
// once; if nothing after it is playable either, playback pauses.
func (c *Controller) skipFailed(index int, carry float64) {
	next := index + 1
	if next >= c.mapper.ClipCount() {
		c.finish()
		return
	}
	c.current = next
	c.local = carry
	c.hub.Publish(Event{Type: EventClip, ClipIndex: next, DecisionID: c.mapper.Clip(next).DecisionID})
	if c.clipPlayable(next) {
		if c.intendPlay {
			c.setState(StatePlaying)
		} else {
			c.setState(StatePaused)
		}
		c.emitTime(true)
	} else if c.buf.State(next) == buffer.StateFailed {
		c.intendPlay = false
		c.setState(StatePaused)
	} else {
		c.setState(StateLoading)
	}
	c.prime()
}

func (c *Controller) finish() {
	c.intendPlay = false
	c.current = 0
	c.local = 0
	c.setState(StateEnded)
	c.emitTime(true)
}

func (c *Controller) clipPlayable(index int) bool {
	if c.continuous {
		return index >= 0 && index < c.mapper.ClipCount()
	}
	return c.buf.Ready(index)
}

// prime keeps the buffer window positioned around the cursor.
func (c *Controller) prime() {
	if c.continuous {
		return
	}
	c.prepareAround(c.current)
}

func (c *Controller) prepareAround(index int) {
	if c.continuous {
		return
	}
	c.buf.EnsureBuffered(index)
	c.buf.EvictStale(index)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	if c.logger != nil {
		c.logger.Debug("playback state", "from", string(c.state), "to", string(s))
	}
	c.state = s
	c.hub.Publish(Event{Type: EventState, State: s})
}

// emitTime publishes the current position. Steady playback emissions are
// coalesced by wall-time interval and positional drift; force bypasses both
// (state transitions, seeks, clip switches).
func (c *Controller) emitTime(force bool) {
	now := time.Now()
	global := c.GlobalTime()

	if !force && c.emittedOnce {
		if now.Sub(c.lastEmitAt) < minEmitInterval && global-c.lastEmitTime < emitDriftSeconds {
			return
		}
	}
	c.lastEmitAt = now
	c.lastEmitTime = global
	c.emittedOnce = true
	c.hub.Publish(Event{Type: EventTime, GlobalTime: global, ClipIndex: c.ClipIndex()})
}
