package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jumpcut/jumpcut-engine/internal/edl"
	"github.com/jumpcut/jumpcut-engine/internal/export"
	"github.com/jumpcut/jumpcut-engine/internal/session"
)

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var rangeErr *edl.InvalidRangeError
	var notFound *edl.NotFoundError
	switch {
	case errors.As(err, &rangeErr):
		WriteError(w, http.StatusUnprocessableEntity, rangeErr.Error(), "INVALID_RANGE")
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, notFound.Error(), "NOT_FOUND")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

func requireSession(cfg ServerConfig, w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	sess := cfg.SessionService.GetSession(id)
	if sess == nil {
		WriteError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return nil
	}
	return sess
}

func editToResponse(e *session.Edit) EditResponse {
	return EditResponse{
		ID:        e.ID,
		Name:      e.Name,
		SourceRef: e.SourceRef,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: e.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func listEditsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		edits, err := cfg.SessionService.ListEdits(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list edits", "INTERNAL")
			return
		}
		resp := EditsResponse{Edits: make([]EditResponse, 0, len(edits))}
		for _, e := range edits {
			resp.Edits = append(resp.Edits, editToResponse(e))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEditRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" || req.SourceRef == "" {
			WriteError(w, http.StatusBadRequest, "name and source_ref are required", "BAD_REQUEST")
			return
		}
		edit, err := cfg.SessionService.CreateEdit(r.Context(), req.Name, req.SourceRef, req.Decisions)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, editToResponse(edit))
	}
}

func getEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		edit, err := cfg.SessionService.GetEdit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if edit == nil {
			WriteError(w, http.StatusNotFound, "edit not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, editToResponse(edit))
	}
}

func deleteEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.SessionService.DeleteEdit(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusNotFound, "edit not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func openSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.SessionService.OpenSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		snap, err := sess.Snapshot()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		WriteJSON(w, http.StatusCreated, OpenSessionResponse{SessionID: sess.ID(), Snapshot: snap})
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		snap, err := sess.Snapshot()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.SessionService.CloseSession(chi.URLParam(r, "id")) {
			WriteError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionAction(cfg, func(sess *session.Session, r *http.Request) error {
		return sess.Play()
	})
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionAction(cfg, func(sess *session.Session, r *http.Request) error {
		return sess.Pause()
	})
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req SeekRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := sess.Seek(req.GlobalTime); err != nil {
			writeDomainError(w, err)
			return
		}
		if cfg.Metrics != nil {
			cfg.Metrics.IncSeeks()
		}
		writeSnapshot(w, sess)
	}
}

func volumeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req VolumeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := sess.SetVolume(req.Volume); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSnapshot(w, sess)
	}
}

func decisionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		decisions, err := sess.Decisions()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		WriteJSON(w, http.StatusOK, DecisionsResponse{Decisions: decisions})
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req ToggleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		applyMutation(cfg, w, sess, sess.ToggleInclusion(req.DecisionID))
	}
}

func reorderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req ReorderRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		applyMutation(cfg, w, sess, sess.Reorder(req.DecisionOrder))
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req TrimRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		applyMutation(cfg, w, sess, sess.Trim(req.DecisionID, req.StartTime, req.EndTime))
	}
}

func deleteDecisionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		applyMutation(cfg, w, sess, sess.Delete(chi.URLParam(r, "decisionID")))
	}
}

func updateDecisionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req UpdateDecisionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		upd := edl.FieldUpdate{
			TranscriptText: req.TranscriptText,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			IsIncluded:     req.IsIncluded,
		}
		applyMutation(cfg, w, sess, sess.UpdateFields(chi.URLParam(r, "decisionID"), upd))
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyAction(cfg, (*session.Session).Undo)
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyAction(cfg, (*session.Session).Redo)
}

func saveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		if err := cfg.SessionService.SaveSession(r.Context(), sess.ID()); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to save edit", "INTERNAL")
			return
		}
		writeSnapshot(w, sess)
	}
}

func duplicateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		var req DuplicateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		edit, err := cfg.SessionService.DuplicateEdit(r.Context(), sess.ID(), req.Name)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to duplicate edit", "INTERNAL")
			return
		}
		WriteJSON(w, http.StatusCreated, editToResponse(edit))
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL")
			return
		}

		events, cancel := sess.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
				flusher.Flush()
			}
		}
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		fps := 30.0
		if raw := r.URL.Query().Get("fps"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "invalid fps", "BAD_REQUEST")
				return
			}
			fps = parsed
		}
		clips, err := sess.Clips()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		title := "Jumpcut Export"
		if edit, err := cfg.SessionService.GetEdit(r.Context(), sess.EditID()); err == nil {
			title = edit.Name
		}
		content := export.GenerateCMX3600(clips, title, fps)
		filename := export.SanitizeName(title, 64) + ".edl"
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))
	}
}

func mediaSourceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("ref")
		if ref == "" {
			WriteError(w, http.StatusBadRequest, "ref query parameter is required", "BAD_REQUEST")
			return
		}
		if err := cfg.MediaServer.ServeSource(w, r, ref); err != nil {
			if os.IsNotExist(err) {
				WriteError(w, http.StatusNotFound, "source not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		}
	}
}

func manifestArtifactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := chi.URLParam(r, "hash")
		artifact := chi.URLParam(r, "artifact")
		if err := cfg.MediaServer.ServeManifestArtifact(w, r, hash, artifact); err != nil {
			if os.IsNotExist(err) {
				WriteError(w, http.StatusNotFound, "manifest artifact not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		}
	}
}

func sessionAction(cfg ServerConfig, fn func(*session.Session, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		if err := fn(sess, r); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSnapshot(w, sess)
	}
}

func historyAction(cfg ServerConfig, fn func(*session.Session) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requireSession(cfg, w, r)
		if sess == nil {
			return
		}
		applied, err := fn(sess)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		snap, err := sess.Snapshot()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
			return
		}
		WriteJSON(w, http.StatusOK, HistoryResponse{
			Applied: applied,
			CanUndo: snap.CanUndo,
			CanRedo: snap.CanRedo,
		})
	}
}

func applyMutation(cfg ServerConfig, w http.ResponseWriter, sess *session.Session, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if cfg.Metrics != nil {
		cfg.Metrics.IncEDLMutations()
	}
	writeSnapshot(w, sess)
}

func writeSnapshot(w http.ResponseWriter, sess *session.Session) {
	snap, err := sess.Snapshot()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "session unavailable", "INTERNAL")
		return
	}
	WriteJSON(w, http.StatusOK, snap)
}
