// Package engine drives pseudo-concatenated playback: a state machine that
// walks an ordered clip list as if it were one continuous video, buffering
// ahead of the cursor and never emitting a stale or regressing time signal.
package engine

import (
	"log/slog"
	"sync"
)

// EventType distinguishes the notifications a session emits to observers.
type EventType string

const (
	EventState   EventType = "state"
	EventTime    EventType = "time"
	EventClip    EventType = "clip"
	EventBuffer  EventType = "buffer"
	EventHistory EventType = "history"
	EventVolume  EventType = "volume"
	EventEDL     EventType = "edl"
	EventMode    EventType = "mode"
	EventError   EventType = "error"
)

// Event is one notification. Only the fields relevant to Type are set.
type Event struct {
	Type EventType `json:"type"`

	State      State   `json:"state,omitempty"`
	GlobalTime float64 `json:"global_time,omitempty"`
	ClipIndex  int     `json:"clip_index,omitempty"`
	DecisionID string  `json:"decision_id,omitempty"`
	Buffered   []int   `json:"buffered,omitempty"`
	CanUndo    bool    `json:"can_undo,omitempty"`
	CanRedo    bool    `json:"can_redo,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	Revision   int     `json:"revision,omitempty"`
	Streaming  bool    `json:"streaming,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// Hub fans events out to subscribers. Each hub belongs to exactly one playback
// session; subscriptions end when their cancel func runs or the hub closes.
// There is deliberately no package-level instance.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
	logger *slog.Logger
}

const subscriberBuffer = 32

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe registers an observer. The returned cancel func removes the
// subscription and closes the channel; callers must run it when done.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Publish delivers an event to every subscriber. A subscriber that is not
// draining its channel loses the event rather than stalling the engine.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			if h.logger != nil {
				h.logger.Debug("dropping event for slow subscriber", "type", ev.Type)
			}
		}
	}
}

// Close ends all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
