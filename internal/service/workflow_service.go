package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/workflow"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// WorkflowService owns report status transitions. Every screen that
// mutates a report status goes through RequestTransition or AssignAgent;
// the ordering, role and ownership rules live here and nowhere else.
type WorkflowService struct {
	reports    repository.ReportRepository
	profiles   repository.ProfileRepository
	history    repository.ReportHistoryRepository
	dispatcher events.Dispatcher
}

// WorkflowDependencies bundles repositories for the workflow service.
type WorkflowDependencies struct {
	ReportRepo  repository.ReportRepository
	ProfileRepo repository.ProfileRepository
	HistoryRepo repository.ReportHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		reports:    deps.ReportRepo,
		profiles:   deps.ProfileRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// RequestTransition validates and applies a status change requested by an
// actor. Requesting the current status is an errorless no-op. Out-of-order
// requests are rejected with INVALID_TRANSITION and leave the record
// untouched; a concurrent writer between read and write surfaces as
// CONFLICT so the caller can re-fetch and retry.
func (s *WorkflowService) RequestTransition(ctx context.Context, reportID string, requested domain.ReportStatus, role domain.Role, actorID string) (domain.ReportStatus, error) {
	if !workflow.IsValidStatus(requested) {
		return "", apperrors.NewValidationError("unrecognized status", map[string]any{"status": requested})
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		return "", apperrors.NewUnavailable("report lookup failed", err)
	}

	if requested == report.Status {
		return report.Status, nil
	}

	if !workflow.RoleCanSet(role, requested) {
		return "", apperrors.NewForbidden("role cannot set requested status")
	}
	if role == domain.RoleAgent {
		if report.AssignedAgentID == nil || *report.AssignedAgentID != actorID {
			return "", apperrors.NewForbidden("report not assigned to agent")
		}
	}

	if !workflow.CanTransition(report.Status, requested) {
		return "", apperrors.NewInvalidTransition("transition not allowed", map[string]any{
			"current_status":   report.Status,
			"requested_status": requested,
		})
	}

	if err := s.reports.UpdateStatus(ctx, report.ID, report.Status, requested); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return "", apperrors.NewConflict("report status changed concurrently", map[string]any{"report_id": report.ID})
		}
		return "", apperrors.NewUnavailable("status write failed", err)
	}

	s.recordStatusChange(ctx, actorID, role, report.ID, report.Status, requested)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportStatusChanged,
		ReportID: report.ID,
		Actor:    actorFor(role, actorID),
		Payload: events.ReportStatusChangedPayload{
			OldStatus: report.Status,
			NewStatus: requested,
		},
	})
	return requested, nil
}

// AssignAgent sets or clears the assigned agent for a report. Assignment
// moves submitted reports to admin_received and triaged reports to
// assigned_agent; clearing the assignment is the single permitted
// backward transition and resets the report to submitted. Assignment and
// status always change in one write.
func (s *WorkflowService) AssignAgent(ctx context.Context, actor *domain.Profile, reportID string, agentID *string) (*domain.Report, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("administrator required")
	}

	if agentID != nil {
		agent, err := s.profiles.GetByID(ctx, *agentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": *agentID})
			}
			return nil, apperrors.NewUnavailable("agent lookup failed", err)
		}
		if agent.Role != domain.RoleAgent {
			return nil, apperrors.NewValidationError("assignee is not an agent", map[string]any{"agent_id": *agentID})
		}
		if !agent.Active {
			return nil, apperrors.NewConflict("agent inactive", map[string]any{"agent_id": *agentID})
		}
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		return nil, apperrors.NewUnavailable("report lookup failed", err)
	}

	next := domain.ReportStatusSubmitted
	if agentID != nil {
		next = workflow.NextOnAssign(report.Status)
	}

	if err := s.reports.UpdateAssignment(ctx, report.ID, report.Status, agentID, next); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperrors.NewConflict("report status changed concurrently", map[string]any{"report_id": report.ID})
		}
		return nil, apperrors.NewUnavailable("assignment write failed", err)
	}

	oldStatus := report.Status
	oldAgent := report.AssignedAgentID
	report.AssignedAgentID = agentID
	report.Status = next

	s.recordAssignmentChange(ctx, actor.ID, report.ID, oldAgent, agentID, oldStatus, next)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportAssigned,
		ReportID: report.ID,
		Actor:    actorFor(domain.RoleAdmin, actor.ID),
		Payload: events.ReportAssignedPayload{
			AgentID:   agentID,
			NewStatus: next,
		},
	})
	return report, nil
}

// UpdatePriority changes report priority, administrators only.
func (s *WorkflowService) UpdatePriority(ctx context.Context, actor *domain.Profile, reportID string, priority domain.ReportPriority) (*domain.Report, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("administrator required")
	}
	if !domain.IsValidPriority(priority) {
		return nil, apperrors.NewValidationError("unrecognized priority", map[string]any{"priority": priority})
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		return nil, apperrors.NewUnavailable("report lookup failed", err)
	}

	oldPriority := report.Priority
	if err := s.reports.UpdatePriority(ctx, report.ID, priority); err != nil {
		return nil, apperrors.NewUnavailable("priority write failed", err)
	}
	report.Priority = priority

	s.recordPriorityChange(ctx, actor.ID, report.ID, oldPriority, priority)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportPriorityChanged,
		ReportID: report.ID,
		Actor:    actorFor(domain.RoleAdmin, actor.ID),
		Payload: events.ReportPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: priority,
		},
	})
	return report, nil
}

func (s *WorkflowService) recordStatusChange(ctx context.Context, actorID string, role domain.Role, reportID string, oldStatus, newStatus domain.ReportStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.ReportHistory{
		ReportID:    reportID,
		ChangedBy:   &actorID,
		ChangedRole: role,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *WorkflowService) recordAssignmentChange(ctx context.Context, actorID, reportID string, oldAgent, newAgent *string, oldStatus, newStatus domain.ReportStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.ReportHistory{
		ReportID:    reportID,
		ChangedBy:   &actorID,
		ChangedRole: domain.RoleAdmin,
		ChangeType:  domain.ChangeTypeAssignment,
		OldValue: map[string]any{
			"agent_id": oldAgent,
			"status":   oldStatus,
		},
		NewValue: map[string]any{
			"agent_id": newAgent,
			"status":   newStatus,
		},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *WorkflowService) recordPriorityChange(ctx context.Context, actorID, reportID string, oldPriority, newPriority domain.ReportPriority) {
	if s.history == nil {
		return
	}
	entry := &domain.ReportHistory{
		ReportID:    reportID,
		ChangedBy:   &actorID,
		ChangedRole: domain.RoleAdmin,
		ChangeType:  domain.ChangeTypePriority,
		OldValue:    map[string]any{"priority": oldPriority},
		NewValue:    map[string]any{"priority": newPriority},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFor(role domain.Role, actorID string) events.Actor {
	actor := events.Actor{Role: role}
	if actorID != "" {
		actor.ProfileID = &actorID
	}
	return actor
}
