package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/service"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// AdminReportsHandler serves the triage queue and the admin-side workflow
// operations.
type AdminReportsHandler struct {
	reports  *service.ReportService
	workflow *service.WorkflowService
}

// NewAdminReportsHandler constructs handler.
func NewAdminReportsHandler(reportService *service.ReportService, workflowService *service.WorkflowService) *AdminReportsHandler {
	return &AdminReportsHandler{reports: reportService, workflow: workflowService}
}

// ListReports GET /admin/reports.
func (h *AdminReportsHandler) ListReports(c *fiber.Ctx) error {
	filter := parseReportFilter(c)
	reports, err := h.reports.ListForAdmin(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports)})
}

// GetReport GET /admin/reports/:id.
func (h *AdminReportsHandler) GetReport(c *fiber.Ctx) error {
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

// UpdateStatus POST /admin/reports/:id/status.
func (h *AdminReportsHandler) UpdateStatus(c *fiber.Ctx) error {
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

// UpdatePriority PUT /admin/reports/:id/priority.
func (h *AdminReportsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.workflow.UpdatePriority(c.UserContext(), actorProfile(principal), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}

// AssignAgent PUT /admin/reports/:id/agent.
func (h *AdminReportsHandler) AssignAgent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.workflow.AssignAgent(c.UserContext(), actorProfile(principal), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report)})
}

// ListAgents GET /admin/agents.
func (h *AdminReportsHandler) ListAgents(c *fiber.Ctx) error {
	summaries, err := h.reports.ListAgents(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AgentSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, dto.AgentSummaryResponse{
			ID:        summary.Profile.ID,
			Name:      summary.Profile.Name,
			Email:     summary.Profile.Email,
			OpenCount: summary.OpenCount,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /admin/reports/:id/history.
func (h *AdminReportsHandler) ListHistory(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.reports.ListHistory(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func parseReportFilter(c *fiber.Ctx) repository.ReportFilter {
	filter := repository.ReportFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ReportStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.ReportCategory(strings.TrimSpace(part)))
		}
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AssignedAgentID = &agentID
	}
	// stale_after=1h drops reports that have sat in assigned_agent longer
	// than the given duration from the queue.
	if staleStr := c.Query("stale_after"); staleStr != "" {
		if staleAfter, err := time.ParseDuration(staleStr); err == nil && staleAfter > 0 {
			cutoff := time.Now().Add(-staleAfter)
			filter.StaleAssignedBefore = &cutoff
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
