package events

import (
	"time"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated         EventType = "report_created"
	EventReportStatusChanged   EventType = "report_status_changed"
	EventReportPriorityChanged EventType = "report_priority_changed"
	EventReportAssigned        EventType = "report_assigned"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.Role `json:"role"`
	ProfileID *string     `json:"profile_id,omitempty"`
}

// Event represents a domain event emitted by services. Display surfaces
// observe these through the notification channel instead of polling.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  string      `json:"report_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	Category    domain.ReportCategory `json:"category"`
	Description string                `json:"description"`
	Priority    domain.ReportPriority `json:"priority"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	OldStatus domain.ReportStatus `json:"old_status"`
	NewStatus domain.ReportStatus `json:"new_status"`
}

// ReportPriorityChangedPayload payload.
type ReportPriorityChangedPayload struct {
	OldPriority domain.ReportPriority `json:"old_priority"`
	NewPriority domain.ReportPriority `json:"new_priority"`
}

// ReportAssignedPayload payload.
type ReportAssignedPayload struct {
	AgentID   *string             `json:"agent_id,omitempty"`
	NewStatus domain.ReportStatus `json:"new_status"`
}
