package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

const maxDescriptionLength = 4000

// CreateReportInput carries everything needed to file a new report.
// ReporterID is nil for anonymous submissions, which must carry a
// contact address instead so the reporter can still track the report.
type CreateReportInput struct {
	Category    domain.ReportCategory
	Description string
	Priority    domain.ReportPriority
	Location    *domain.Location
	PhotoRefs   []string
	ReporterID  *string
	Contact     *string
}

// AgentSummary pairs an agent profile with its open workload, used by
// the admin assignment picker.
type AgentSummary struct {
	Profile   domain.Profile
	OpenCount int
}

// ReportService covers report intake and the read paths for the three
// role-specific views.
type ReportService struct {
	reports    repository.ReportRepository
	profiles   repository.ProfileRepository
	history    repository.ReportHistoryRepository
	dispatcher events.Dispatcher
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo  repository.ReportRepository
	ProfileRepo repository.ProfileRepository
	HistoryRepo repository.ReportHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		reports:    deps.ReportRepo,
		profiles:   deps.ProfileRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateReport validates and files a new report. Every report enters the
// workflow at submitted regardless of what the caller sent; priority
// defaults to medium when omitted.
func (s *ReportService) CreateReport(ctx context.Context, input CreateReportInput) (*domain.Report, error) {
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	if len(input.Description) > maxDescriptionLength {
		return nil, apperrors.NewValidationError("description too long", map[string]any{"max_length": maxDescriptionLength})
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unrecognized category", map[string]any{"category": input.Category})
	}
	if input.Priority == "" {
		input.Priority = domain.ReportPriorityMedium
	}
	if !domain.IsValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unrecognized priority", map[string]any{"priority": input.Priority})
	}
	if input.Location != nil {
		if input.Location.Lat < -90 || input.Location.Lat > 90 || input.Location.Lng < -180 || input.Location.Lng > 180 {
			return nil, apperrors.NewValidationError("location out of range", nil)
		}
	}
	if input.ReporterID == nil {
		if input.Contact == nil || strings.TrimSpace(*input.Contact) == "" {
			return nil, apperrors.NewValidationError("anonymous reports require a contact address", nil)
		}
	}

	report := &domain.Report{
		Category:    input.Category,
		Description: input.Description,
		Priority:    input.Priority,
		Location:    input.Location,
		PhotoRefs:   input.PhotoRefs,
		ReporterID:  input.ReporterID,
		Contact:     input.Contact,
		Status:      domain.ReportStatusSubmitted,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.NewUnavailable("report write failed", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventReportCreated,
		ReportID: report.ID,
		Actor:    reporterActor(input.ReporterID),
		Payload: events.ReportCreatedPayload{
			Category:    report.Category,
			Description: report.Description,
			Priority:    report.Priority,
		},
	})
	return report, nil
}

// GetForReporter fetches a single report, visible only to its reporter.
// Anonymous reports match on the contact address instead.
func (s *ReportService) GetForReporter(ctx context.Context, reportID string, reporterID, contact string) (*domain.Report, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !ownsReport(report, reporterID, contact) {
		// Not found rather than forbidden so report IDs do not leak.
		return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
	}
	return report, nil
}

// ListForReporter returns the caller's own reports, newest first.
func (s *ReportService) ListForReporter(ctx context.Context, reporterID, contact string) ([]domain.Report, error) {
	reports, err := s.reports.ListForReporter(ctx, reporterID, contact)
	if err != nil {
		return nil, apperrors.NewUnavailable("report listing failed", err)
	}
	return reports, nil
}

// ListForAdmin returns the triage queue, grouped by category then
// priority so the oldest urgent work surfaces first within each group.
func (s *ReportService) ListForAdmin(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	reports, err := s.reports.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable("report listing failed", err)
	}
	return reports, nil
}

// ListForAgent returns reports assigned to the given agent.
func (s *ReportService) ListForAgent(ctx context.Context, agentID string, statuses []domain.ReportStatus) ([]domain.Report, error) {
	filter := repository.ReportFilter{
		AssignedAgentID: &agentID,
		Statuses:        statuses,
	}
	reports, err := s.reports.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewUnavailable("report listing failed", err)
	}
	return reports, nil
}

// GetForStaff fetches a report for an admin or for the agent it is
// assigned to.
func (s *ReportService) GetForStaff(ctx context.Context, reportID string, role domain.Role, staffID string) (*domain.Report, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAgent {
		if report.AssignedAgentID == nil || *report.AssignedAgentID != staffID {
			return nil, apperrors.NewForbidden("report not assigned to agent")
		}
	}
	return report, nil
}

// ListHistory returns the audit trail for a report, oldest first.
func (s *ReportService) ListHistory(ctx context.Context, reportID string, limit, offset int) ([]domain.ReportHistory, error) {
	if _, err := s.getReport(ctx, reportID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByReport(ctx, reportID, limit, offset)
	if err != nil {
		return nil, apperrors.NewUnavailable("history listing failed", err)
	}
	return entries, nil
}

// ListAgents returns active agents with their open report counts.
func (s *ReportService) ListAgents(ctx context.Context) ([]AgentSummary, error) {
	role := domain.RoleAgent
	active := true
	agents, err := s.profiles.List(ctx, repository.ProfileFilter{Role: &role, Active: &active})
	if err != nil {
		return nil, apperrors.NewUnavailable("agent listing failed", err)
	}

	counts, err := s.reports.CountOpenByAgent(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable("workload counting failed", err)
	}

	summaries := make([]AgentSummary, 0, len(agents))
	for _, agent := range agents {
		summaries = append(summaries, AgentSummary{
			Profile:   agent,
			OpenCount: counts[agent.ID],
		})
	}
	return summaries, nil
}

func (s *ReportService) getReport(ctx context.Context, reportID string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		return nil, apperrors.NewUnavailable("report lookup failed", err)
	}
	return report, nil
}

func (s *ReportService) publish(ctx context.Context, event events.Event) {
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

func ownsReport(report *domain.Report, reporterID, contact string) bool {
	if report.ReporterID != nil && reporterID != "" && *report.ReporterID == reporterID {
		return true
	}
	if report.Contact != nil && contact != "" && strings.EqualFold(*report.Contact, contact) {
		return true
	}
	return false
}

func reporterActor(reporterID *string) events.Actor {
	return events.Actor{Role: domain.RoleReporter, ProfileID: reporterID}
}
