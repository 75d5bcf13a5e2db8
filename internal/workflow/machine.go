package workflow

import "github.com/spec-kit/civic-report-service/internal/domain"

// statusOrder is the canonical progression for a report. Index position
// drives both the progress trackers and the ordering gate on transitions.
var statusOrder = []domain.ReportStatus{
	domain.ReportStatusSubmitted,
	domain.ReportStatusAdminReceived,
	domain.ReportStatusAssignedAgent,
	domain.ReportStatusAgentReceived,
	domain.ReportStatusResolved,
}

// statusLabels are the display labels shown by progress trackers.
var statusLabels = map[domain.ReportStatus]string{
	domain.ReportStatusSubmitted:     "Submitted",
	domain.ReportStatusAdminReceived: "Admin Received",
	domain.ReportStatusAssignedAgent: "Assigned to Agent",
	domain.ReportStatusAgentReceived: "Issue Received",
	domain.ReportStatusResolved:      "Issue Solved",
}

// allowedTransitions lists every forward edge of the state machine. The
// reset to submitted on unassignment is handled separately by
// AssignAgent and never flows through here.
var allowedTransitions = map[domain.ReportStatus][]domain.ReportStatus{
	domain.ReportStatusSubmitted:     {domain.ReportStatusAdminReceived},
	domain.ReportStatusAdminReceived: {domain.ReportStatusAssignedAgent},
	domain.ReportStatusAssignedAgent: {domain.ReportStatusAgentReceived, domain.ReportStatusResolved},
	domain.ReportStatusAgentReceived: {domain.ReportStatusResolved},
	domain.ReportStatusResolved:      {},
}

// Step pairs a status with its display label.
type Step struct {
	Status domain.ReportStatus
	Label  string
}

// Steps returns the ordered progression used to render trackers.
func Steps() []Step {
	steps := make([]Step, 0, len(statusOrder))
	for _, status := range statusOrder {
		steps = append(steps, Step{Status: status, Label: statusLabels[status]})
	}
	return steps
}

// StepIndex returns the position of status in the ordered progression, or
// -1 for unrecognized values. Pure function, shared by every display
// surface.
func StepIndex(status domain.ReportStatus) int {
	for i, s := range statusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

// Label returns the display label for status, or the raw value when
// unrecognized.
func Label(status domain.ReportStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// IsValidStatus reports whether status is one of the five canonical values.
func IsValidStatus(status domain.ReportStatus) bool {
	return StepIndex(status) >= 0
}

// IsTerminal reports whether status ends the lifecycle.
func IsTerminal(status domain.ReportStatus) bool {
	return status == domain.ReportStatusResolved
}

// CanTransition reports whether the edge current -> next exists in the
// state machine. Same-status is not an edge; callers treat it as a no-op.
func CanTransition(current, next domain.ReportStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// RoleCanSet is the single capability check for role-based dispatch.
// Administrators move reports into admin_received; assignment moves
// (assigned_agent, reset to submitted) go through AssignAgent rather than
// a direct status request. Agents move reports they own into
// agent_received or resolved. Reporters hold no transition capability.
func RoleCanSet(role domain.Role, target domain.ReportStatus) bool {
	switch role {
	case domain.RoleAdmin:
		return target == domain.ReportStatusAdminReceived
	case domain.RoleAgent:
		return target == domain.ReportStatusAgentReceived || target == domain.ReportStatusResolved
	}
	return false
}

// NextOnAssign returns the status a report takes when an agent is
// assigned: submitted reports move to admin_received first,
// admin_received reports move to assigned_agent, and reports already in
// an agent-owned state keep their position (the status index never
// decreases except through unassignment).
func NextOnAssign(current domain.ReportStatus) domain.ReportStatus {
	switch current {
	case domain.ReportStatusSubmitted:
		return domain.ReportStatusAdminReceived
	case domain.ReportStatusAdminReceived:
		return domain.ReportStatusAssignedAgent
	}
	return current
}
