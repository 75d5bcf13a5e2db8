package domain

import "time"

// ReportChangeType captures what changed in a history entry.
type ReportChangeType string

const (
	ChangeTypeStatus     ReportChangeType = "STATUS_CHANGE"
	ChangeTypeAssignment ReportChangeType = "ASSIGNMENT_CHANGE"
	ChangeTypePriority   ReportChangeType = "PRIORITY_CHANGE"
)

// ReportHistory is an immutable audit trail entry.
type ReportHistory struct {
	ID          string
	ReportID    string
	ChangedBy   *string
	ChangedRole Role
	ChangeType  ReportChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
