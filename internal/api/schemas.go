package api

import (
	"github.com/jumpcut/jumpcut-engine/internal/edl"
	"github.com/jumpcut/jumpcut-engine/internal/session"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type CreateEditRequest struct {
	Name      string         `json:"name"`
	SourceRef string         `json:"source_ref"`
	Decisions []edl.Decision `json:"decisions"`
}

type EditResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceRef string `json:"source_ref"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type EditsResponse struct {
	Edits []EditResponse `json:"edits"`
}

type OpenSessionResponse struct {
	SessionID string           `json:"session_id"`
	Snapshot  session.Snapshot `json:"snapshot"`
}

type DecisionsResponse struct {
	Decisions []edl.Decision `json:"decisions"`
}

type SeekRequest struct {
	GlobalTime float64 `json:"global_time"`
}

type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

type ToggleRequest struct {
	DecisionID string `json:"decision_id"`
}

type ReorderRequest struct {
	DecisionOrder []string `json:"decision_order"`
}

type TrimRequest struct {
	DecisionID string  `json:"decision_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
}

type UpdateDecisionRequest struct {
	TranscriptText *string  `json:"transcript_text,omitempty"`
	StartTime      *float64 `json:"start_time,omitempty"`
	EndTime        *float64 `json:"end_time,omitempty"`
	IsIncluded     *bool    `json:"is_included,omitempty"`
}

type HistoryResponse struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

type DuplicateRequest struct {
	Name string `json:"name"`
}
