package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/service"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// AgentReportsHandler serves the field agent work queue.
type AgentReportsHandler struct {
	reports  *service.ReportService
	workflow *service.WorkflowService
}

// NewAgentReportsHandler constructs handler.
func NewAgentReportsHandler(reportService *service.ReportService, workflowService *service.WorkflowService) *AgentReportsHandler {
	return &AgentReportsHandler{reports: reportService, workflow: workflowService}
}

// ListReports GET /agent/reports. Resolved reports are hidden unless
// include_resolved is set.
func (h *AgentReportsHandler) ListReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var statuses []domain.ReportStatus
	if c.Query("include_resolved") != "true" {
		statuses = []domain.ReportStatus{
			domain.ReportStatusAssignedAgent,
			domain.ReportStatusAgentReceived,
		}
	}
	reports, err := h.reports.ListForAgent(c.UserContext(), principal.ID, statuses)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports)})
}

// GetReport GET /agent/reports/:id.
func (h *AgentReportsHandler) GetReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.reports.GetForStaff(c.UserContext(), c.Params("id"), principal.Role, principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}

// UpdateStatus POST /agent/reports/:id/status.
func (h *AgentReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if _, err := h.workflow.RequestTransition(c.UserContext(), c.Params("id"), req.Status, principal.Role, principal.ID); err != nil {
		return err
	}
	report, err := h.reports.GetForStaff(c.UserContext(), c.Params("id"), principal.Role, principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}
