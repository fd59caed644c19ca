package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/buffer"
	"github.com/jumpcut/jumpcut-engine/internal/edl"
	"github.com/jumpcut/jumpcut-engine/internal/logging"
	"github.com/jumpcut/jumpcut-engine/internal/metrics"
	"github.com/jumpcut/jumpcut-engine/internal/streaming"
)

// Options carries the per-session tunables the service hands to every new
// session.
type Options struct {
	Ahead   int
	Behind  int
	Tick    time.Duration
	Metrics *metrics.Metrics
}

// Service manages persisted edits and their live sessions. The sessions map
// is the only state shared across HTTP handlers, guarded by one mutex; each
// session serializes its own work internally.
type Service struct {
	repo    Repository
	loader  buffer.Loader
	adapter *streaming.Adapter
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(repo Repository, loader buffer.Loader, adapter *streaming.Adapter, opts Options, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		loader:   loader,
		adapter:  adapter,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// CreateEdit stores a new edit with its initial decisions, typically an
// AI-selection result delivered by the upstream service.
func (s *Service) CreateEdit(ctx context.Context, name, sourceRef string, decisions []edl.Decision) (*Edit, error) {
	if name == "" {
		name = "Untitled edit"
	}
	if _, err := edl.NewList(decisions); err != nil {
		return nil, fmt.Errorf("invalid initial decisions: %w", err)
	}

	now := time.Now()
	e := &Edit{
		ID:        NewID(),
		Name:      name,
		SourceRef: sourceRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateEdit(ctx, e); err != nil {
		return nil, err
	}
	if err := s.repo.SaveDecisions(ctx, e.ID, normalizeDecisions(decisions)); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("edit created", "edit_id", e.ID, "decisions", len(decisions))
	}
	return e, nil
}

// ListEdits returns all persisted edits.
func (s *Service) ListEdits(ctx context.Context) ([]*Edit, error) {
	return s.repo.ListEdits(ctx)
}

// GetEdit returns one persisted edit, nil when absent.
func (s *Service) GetEdit(ctx context.Context, id string) (*Edit, error) {
	return s.repo.GetEdit(ctx, id)
}

// DeleteEdit removes a persisted edit and closes any live session over it.
func (s *Service) DeleteEdit(ctx context.Context, id string) error {
	s.mu.Lock()
	for sid, sess := range s.sessions {
		if sess.EditID() == id {
			delete(s.sessions, sid)
			go sess.Close()
		}
	}
	s.mu.Unlock()
	return s.repo.DeleteEdit(ctx, id)
}

// OpenSession starts a live playback session over a persisted edit.
func (s *Service) OpenSession(ctx context.Context, editID string) (*Session, error) {
	e, err := s.repo.GetEdit(ctx, editID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("edit not found: %s", editID)
	}

	decisions, err := s.repo.GetDecisions(ctx, editID)
	if err != nil {
		return nil, err
	}
	list, err := edl.NewList(decisions)
	if err != nil {
		return nil, fmt.Errorf("stored decisions invalid: %w", err)
	}

	id := NewID()
	sess := New(Config{
		SessionID: id,
		EditID:    editID,
		Loader:    s.loader,
		Adapter:   s.adapter,
		Ahead:     s.opts.Ahead,
		Behind:    s.opts.Behind,
		Tick:      s.opts.Tick,
		Logger:    logging.WithSessionID(s.logger, id),
		Metrics:   s.opts.Metrics,
	}, list)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("session opened", "session_id", id, "edit_id", editID, "decisions", list.Len())
	}
	return sess, nil
}

// GetSession returns a live session, nil when absent.
func (s *Service) GetSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// CloseSession ends a live session. Unsaved mutations are discarded; the
// persisted edit is untouched.
func (s *Service) CloseSession(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
	return ok
}

// SessionCount returns how many sessions are live.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// BufferedClipCount sums resident clips across live sessions.
func (s *Service) BufferedClipCount() int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	total := 0
	for _, sess := range sessions {
		total += sess.BufferedCount()
	}
	return total
}

// SaveSession persists a session's current decision list back to its edit.
func (s *Service) SaveSession(ctx context.Context, sessionID string) error {
	sess := s.GetSession(sessionID)
	if sess == nil {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	decisions, err := sess.Decisions()
	if err != nil {
		return err
	}
	if err := s.repo.SaveDecisions(ctx, sess.EditID(), decisions); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("session saved", "session_id", sessionID, "edit_id", sess.EditID(), "decisions", len(decisions))
	}
	return nil
}

// DuplicateEdit copies a session's current (possibly unsaved) list into a new
// persisted edit.
func (s *Service) DuplicateEdit(ctx context.Context, sessionID, name string) (*Edit, error) {
	sess := s.GetSession(sessionID)
	if sess == nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	source, err := s.repo.GetEdit(ctx, sess.EditID())
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("edit not found: %s", sess.EditID())
	}

	decisions, err := sess.Decisions()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = source.Name + " (copy)"
	}

	copied := make([]edl.Decision, len(decisions))
	copy(copied, decisions)
	for i := range copied {
		copied[i].ID = NewID()
	}

	return s.CreateEdit(ctx, name, source.SourceRef, copied)
}

// Shutdown closes every live session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func normalizeDecisions(decisions []edl.Decision) []edl.Decision {
	out := make([]edl.Decision, len(decisions))
	copy(out, decisions)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = NewID()
		}
		out[i].OrderIndex = i
	}
	return out
}
