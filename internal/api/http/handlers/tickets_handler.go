package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/service"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle over HTTP.
type TicketsHandler struct {
	tickets *service.TicketService
	metrics *observability.Metrics
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, metrics *observability.Metrics) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, metrics: metrics}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal := auth.PrincipalFromContext(c)
	if principal.Role != domain.RoleUser {
		return apperrors.NewForbidden("only end users may open tickets")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Urgency:     domain.TicketUrgency(strings.ToUpper(req.Urgency)),
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal, input)
	if err != nil {
		h.metrics.RecordIntake(intakeOutcome(err))
		return err
	}
	h.metrics.RecordIntake(observability.IntakeOutcomeCreated)

	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// List handles GET /tickets. End users see their own tickets; staff may
// filter across users.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal := auth.PrincipalFromContext(c)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	var (
		tickets []domain.Ticket
		err     error
	)
	if principal.Role == domain.RoleUser {
		tickets, err = h.tickets.ListUserTickets(c.UserContext(), principal.ID, limit, offset)
	} else {
		query := service.TicketListQuery{
			UserID:     c.Query("user_id"),
			AssigneeID: c.Query("assignee_id"),
			Status:     domain.TicketStatus(strings.ToUpper(c.Query("status"))),
			Department: domain.Department(strings.ToUpper(c.Query("department"))),
			Limit:      limit,
			Offset:     offset,
		}
		tickets, err = h.tickets.ListTickets(c.UserContext(), principal, query)
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"tickets": dto.NewTicketListResponse(tickets)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal := auth.PrincipalFromContext(c)
	ticket, err := h.tickets.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal := auth.PrincipalFromContext(c)

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Feedback:    req.Feedback,
	}
	if req.Urgency != nil {
		urgency := domain.TicketUrgency(strings.ToUpper(*req.Urgency))
		input.Urgency = &urgency
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}
	if req.Department != nil {
		dept := domain.Department(strings.ToUpper(*req.Department))
		input.Department = &dept
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), principal, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Close handles POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal := auth.PrincipalFromContext(c)
	ticket, err := h.tickets.CloseTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

func intakeOutcome(err error) string {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return observability.IntakeOutcomeFailed
	}
	switch domainErr.Code {
	case "RATE_LIMIT_EXCEEDED":
		return observability.IntakeOutcomeRateLimited
	case "CONTENT_REJECTED":
		return observability.IntakeOutcomeRejected
	default:
		return observability.IntakeOutcomeFailed
	}
}
