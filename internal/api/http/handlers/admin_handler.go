package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/worker"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// AdminHandler exposes moderation review and misuse scan controls.
type AdminHandler struct {
	scanner    *worker.MisuseWorker
	violations repository.ViolationRepository
	reports    repository.MisuseReportRepository
	metrics    *observability.Metrics
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(scanner *worker.MisuseWorker, violations repository.ViolationRepository, reports repository.MisuseReportRepository, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{
		scanner:    scanner,
		violations: violations,
		reports:    reports,
		metrics:    metrics,
	}
}

// TriggerScan handles POST /admin/misuse-scan.
func (h *AdminHandler) TriggerScan(c *fiber.Ctx) error {
	var req dto.RunMisuseScanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
	}
	if req.WindowHours < 0 {
		return apperrors.NewValidationError("window_hours must be positive", nil)
	}

	stats, err := h.scanner.TriggerManual(c.UserContext(), time.Duration(req.WindowHours)*time.Hour)
	if err != nil {
		return apperrors.MapError(err)
	}
	if stats == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "a scan is already in progress",
		})
	}

	h.metrics.RecordScanRun(stats.ReportsCreated, stats.Failures)
	return c.JSON(dto.NewScanResultResponse(stats))
}

// ScanStatus handles GET /admin/misuse-scan/status.
func (h *AdminHandler) ScanStatus(c *fiber.Ctx) error {
	return c.JSON(h.scanner.Status())
}

// ListViolations handles GET /admin/violations.
func (h *AdminHandler) ListViolations(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return apperrors.NewValidationError("user_id query parameter is required", nil)
	}

	violations, err := h.violations.ListByUser(c.UserContext(), userID, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return c.JSON(fiber.Map{"violations": dto.NewViolationListResponse(violations)})
}

// ListMisuseReports handles GET /admin/misuse-reports.
func (h *AdminHandler) ListMisuseReports(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return apperrors.NewValidationError("user_id query parameter is required", nil)
	}

	reports, err := h.reports.ListByUser(c.UserContext(), userID, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	return c.JSON(fiber.Map{"reports": dto.NewMisuseReportListResponse(reports)})
}
