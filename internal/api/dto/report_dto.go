package dto

import (
	"time"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// LocationPayload is the optional coordinate block on report requests and
// responses.
type LocationPayload struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// CreateReportRequest payload. Contact is required when the caller is not
// signed in so anonymous reports stay trackable.
type CreateReportRequest struct {
	Category    domain.ReportCategory `json:"category"`
	Description string                `json:"description"`
	Priority    domain.ReportPriority `json:"priority,omitempty"`
	Location    *LocationPayload      `json:"location,omitempty"`
	PhotoRefs   []string              `json:"photo_refs,omitempty"`
	Contact     *string               `json:"contact,omitempty"`
}

// ReportResponse is the full report view. StepIndex and StatusLabel feed
// the progress tracker so clients never re-derive the ordering.
type ReportResponse struct {
	ID              string                `json:"id"`
	Category        domain.ReportCategory `json:"category"`
	Description     string                `json:"description"`
	Priority        domain.ReportPriority `json:"priority"`
	Location        *LocationPayload      `json:"location,omitempty"`
	PhotoRefs       []string              `json:"photo_refs,omitempty"`
	ReporterID      *string               `json:"reporter_id,omitempty"`
	Contact         *string               `json:"contact,omitempty"`
	AssignedAgentID *string               `json:"assigned_agent_id,omitempty"`
	Status          domain.ReportStatus   `json:"status"`
	StatusLabel     string                `json:"status_label"`
	StepIndex       int                   `json:"step_index"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ReportDetailResponse adds the audit trail to the report view.
type ReportDetailResponse struct {
	ReportResponse
	History []ReportHistoryResponse `json:"history"`
}

// StepResponse is one entry of the status progression.
type StepResponse struct {
	Status domain.ReportStatus `json:"status"`
	Label  string              `json:"label"`
}

// UpdateStatusRequest payload for admin and agent status endpoints.
type UpdateStatusRequest struct {
	Status domain.ReportStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.ReportPriority `json:"priority"`
}

// AssignAgentRequest payload. A null agent_id clears the assignment and
// returns the report to the submitted queue.
type AssignAgentRequest struct {
	AgentID *string `json:"agent_id"`
}

// AgentSummaryResponse pairs an agent with its open workload.
type AgentSummaryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	OpenCount int    `json:"open_count"`
}

// ReportHistoryResponse is one audit trail entry.
type ReportHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangedBy   *string                 `json:"changed_by,omitempty"`
	ChangedRole domain.Role             `json:"changed_role"`
	ChangeType  domain.ReportChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}
