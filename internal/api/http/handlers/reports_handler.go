package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/service"
	"github.com/spec-kit/civic-report-service/internal/workflow"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// ReportsHandler serves the citizen-facing report endpoints. Submission
// works with or without a signed-in principal; anonymous callers track
// their reports by contact address.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateReportInput{
		Category:    req.Category,
		Description: req.Description,
		Priority:    req.Priority,
		PhotoRefs:   req.PhotoRefs,
		Contact:     req.Contact,
	}
	if req.Location != nil {
		input.Location = &domain.Location{
			Lat:     req.Location.Lat,
			Lng:     req.Location.Lng,
			Address: req.Location.Address,
		}
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.ReporterID = &principal.ID
		if input.Contact == nil && principal.Email != "" {
			input.Contact = &principal.Email
		}
	}

	report, err := h.reports.CreateReport(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reportResponse(report)})
}

// ListReports GET /reports.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	reporterID, contact, err := callerIdentity(c)
	if err != nil {
		return err
	}
	reports, err := h.reports.ListForReporter(c.UserContext(), reporterID, contact)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports)})
}

// GetReport GET /reports/:id.
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	reporterID, contact, err := callerIdentity(c)
	if err != nil {
		return err
	}
	report, err := h.reports.GetForReporter(c.UserContext(), c.Params("id"), reporterID, contact)
	if err != nil {
		return err
	}
	history, err := h.reports.ListHistory(c.UserContext(), report.ID, 0, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReportDetailResponse{
		ReportResponse: reportResponse(report),
		History:        historyResponses(history),
	}})
}

// ListSteps GET /reports/steps. Serves the progress tracker definition so
// every surface renders the same ordered progression.
func (h *ReportsHandler) ListSteps(c *fiber.Ctx) error {
	steps := workflow.Steps()
	items := make([]dto.StepResponse, 0, len(steps))
	for _, step := range steps {
		items = append(items, dto.StepResponse{Status: step.Status, Label: step.Label})
	}
	return c.JSON(fiber.Map{"data": items})
}

// callerIdentity resolves who is asking: the principal ID when signed in,
// otherwise the contact query parameter.
func callerIdentity(c *fiber.Ctx) (string, string, error) {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.ID, principal.Email, nil
	}
	contact := strings.TrimSpace(c.Query("contact"))
	if contact == "" {
		return "", "", apperrors.NewUnauthorized("sign in or provide a contact parameter")
	}
	return "", contact, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func reportResponse(report *domain.Report) dto.ReportResponse {
	resp := dto.ReportResponse{
		ID:              report.ID,
		Category:        report.Category,
		Description:     report.Description,
		Priority:        report.Priority,
		PhotoRefs:       report.PhotoRefs,
		ReporterID:      report.ReporterID,
		Contact:         report.Contact,
		AssignedAgentID: report.AssignedAgentID,
		Status:          report.Status,
		StatusLabel:     workflow.Label(report.Status),
		StepIndex:       workflow.StepIndex(report.Status),
		CreatedAt:       report.CreatedAt,
		UpdatedAt:       report.UpdatedAt,
	}
	if report.Location != nil {
		resp.Location = &dto.LocationPayload{
			Lat:     report.Location.Lat,
			Lng:     report.Location.Lng,
			Address: report.Location.Address,
		}
	}
	return resp
}

func reportResponses(reports []domain.Report) []dto.ReportResponse {
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, reportResponse(&reports[i]))
	}
	return items
}

func historyResponses(entries []domain.ReportHistory) []dto.ReportHistoryResponse {
	items := make([]dto.ReportHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ReportHistoryResponse{
			ID:          entry.ID,
			ChangedBy:   entry.ChangedBy,
			ChangedRole: entry.ChangedRole,
			ChangeType:  entry.ChangeType,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return items
}

func actorProfile(principal *auth.Principal) *domain.Profile {
	return &domain.Profile{
		ID:    principal.ID,
		Email: principal.Email,
		Role:  principal.Role,
	}
}
