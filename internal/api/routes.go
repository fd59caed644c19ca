package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jumpcut/jumpcut-engine/internal/config"
	"github.com/jumpcut/jumpcut-engine/internal/metrics"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(metrics.RequestMiddleware(cfg.Metrics))
	}

	r.Get("/health", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			cfg.Metrics.Handler(func() {
				cfg.Metrics.SetActiveSessions(cfg.SessionService.SessionCount())
				cfg.Metrics.SetBufferedClips(cfg.SessionService.BufferedClipCount())
			}).ServeHTTP(w, req)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/edits", listEditsHandler(cfg))
		r.Post("/edits", createEditHandler(cfg))
		r.Get("/edits/{id}", getEditHandler(cfg))
		r.Delete("/edits/{id}", deleteEditHandler(cfg))
		r.Post("/edits/{id}/sessions", openSessionHandler(cfg))

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", getSessionHandler(cfg))
			r.Delete("/", closeSessionHandler(cfg))
			r.Post("/play", playHandler(cfg))
			r.Post("/pause", pauseHandler(cfg))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/volume", volumeHandler(cfg))
			r.Get("/decisions", decisionsHandler(cfg))
			r.Post("/edl/toggle", toggleHandler(cfg))
			r.Post("/edl/reorder", reorderHandler(cfg))
			r.Post("/edl/trim", trimHandler(cfg))
			r.Delete("/edl/{decisionID}", deleteDecisionHandler(cfg))
			r.Patch("/edl/{decisionID}", updateDecisionHandler(cfg))
			r.Post("/undo", undoHandler(cfg))
			r.Post("/redo", redoHandler(cfg))
			r.Post("/save", saveHandler(cfg))
			r.Post("/duplicate", duplicateHandler(cfg))
			r.Get("/events", eventsHandler(cfg))
			r.Get("/export.edl", exportHandler(cfg))
		})

		r.Get("/media/source", mediaSourceHandler(cfg))
		r.Get("/manifests/{hash}/{artifact}", manifestArtifactHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return false
	}
	return true
}
