package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// TicketService owns the intake pipeline and the lifecycle rules. Creation
// runs rate limiter, then moderation gate, then router, each stage strictly
// after the previous one; nothing is persisted until every stage passes.
type TicketService struct {
	tickets    repository.TicketRepository
	limiter    *RateLimiter
	gate       *ModerationGate
	router     *DepartmentRouter
	assignment AssignmentResolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Limiter    *RateLimiter
	Gate       *ModerationGate
	Router     *DepartmentRouter
	Assignment AssignmentResolver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Urgency     domain.TicketUrgency
}

// TicketUpdateInput describes a partial ticket update. Nil fields are left
// untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Urgency     *domain.TicketUrgency
	Status      *domain.TicketStatus
	Department  *domain.Department
	Feedback    *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		limiter:    deps.Limiter,
		gate:       deps.Gate,
		router:     deps.Router,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket runs the intake pipeline for a user submission.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = domain.TicketUrgencyMedium
	}
	if !domain.ValidUrgency(urgency) {
		return nil, apperrors.NewValidationError("urgency must be one of LOW, MEDIUM, HIGH", map[string]any{"urgency": urgency})
	}

	now := time.Now()
	ok, err := s.limiter.CanCreate(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewRateLimitExceeded(s.limiter.cfg.MaxTickets, s.limiter.cfg.WindowHours)
	}

	// The gate must block before routing runs; a rejection means no ticket
	// row is ever written.
	if err := s.gate.Screen(ctx, user.ID, title, description); err != nil {
		return nil, err
	}

	decision := s.router.Classify(ctx, title, description)

	var assigneeID *string
	assignee, err := s.assignment.ResolveAssignee(ctx, decision.Department)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	if assignee != nil {
		assigneeID = &assignee.ID
	} else {
		s.logger.Warn("no active agent for department", zap.String("department", string(decision.Department)))
	}

	ticket := &domain.Ticket{
		ID:          generateTicketID(now),
		UserID:      user.ID,
		AssigneeID:  assigneeID,
		Title:       title,
		Description: description,
		Urgency:     urgency,
		Status:      domain.TicketStatusAssigned,
		Department:  decision.Department,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("department", string(ticket.Department)),
		zap.Float64("routing_confidence", decision.Confidence))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: user.Role, UserID: user.ID},
		Payload: events.TicketCreatedPayload{
			Department: ticket.Department,
			AssigneeID: ticket.AssigneeID,
			Urgency:    ticket.Urgency,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket the actor is allowed to see: the owner, any
// agent, or an admin.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.UserID != actor.ID && !actor.IsStaff() {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListUserTickets returns paginated tickets owned by the user.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

// TicketListQuery captures staff-side listing filters. Empty fields are
// ignored.
type TicketListQuery struct {
	UserID     string
	AssigneeID string
	Status     domain.TicketStatus
	Department domain.Department
	Limit      int
	Offset     int
}

// ListTickets returns paginated tickets matching the query. Agents and
// admins only.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, query TicketListQuery) ([]domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("access denied")
	}

	filter := repository.TicketFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.UserID != "" {
		filter.UserID = &query.UserID
	}
	if query.AssigneeID != "" {
		filter.AssigneeID = &query.AssigneeID
	}
	if query.Status != "" {
		filter.Statuses = []domain.TicketStatus{query.Status}
	}
	if query.Department != "" {
		filter.Department = &query.Department
	}

	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a role- and state-scoped partial update, including
// status transitions governed by the state machine.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	isOwner := ticket.UserID == actor.ID
	isStaff := actor.Role == domain.RoleAdmin || isAssignedAgent(actor, ticket)
	if !isOwner && !isStaff {
		return nil, apperrors.NewForbidden("access denied")
	}

	if err := validateUpdateFields(ticket, input, isStaff); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if input.Status != nil && *input.Status != ticket.Status {
		if err := authorizeTransition(actor, ticket, *input.Status); err != nil {
			return nil, err
		}
		ticket.Status = *input.Status
		if ticket.Status == domain.TicketStatusClosed {
			now := time.Now()
			ticket.ClosedAt = &now
		} else {
			ticket.ClosedAt = nil
		}
	}

	applyFieldUpdates(ticket, input)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	if ticket.Status != oldStatus {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.Actor{Role: actor.Role, UserID: actor.ID},
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
		if ticket.Status == domain.TicketStatusClosed {
			s.signalClosure(ctx, actor, ticket.ID)
		}
	}
	return ticket, nil
}

// CloseTicket transitions the ticket into CLOSED on behalf of the actor.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	status := domain.TicketStatusClosed
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{Status: &status})
}

// signalClosure hands the ticket to the summarization collaborator. The hook
// is fire-and-forget: it runs detached from the request and its failure never
// affects the transition.
func (s *TicketService) signalClosure(ctx context.Context, actor *domain.User, ticketID string) {
	detached := context.WithoutCancel(ctx)
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketClosed,
		TicketID:  ticketID,
		Actor:     events.Actor{Role: actor.Role, UserID: actor.ID},
		Timestamp: time.Now(),
		Payload:   events.TicketClosedPayload{TicketID: ticketID},
	}
	go func() {
		_ = s.dispatcher.Publish(detached, event)
	}()
}

func validateUpdateFields(ticket *domain.Ticket, input TicketUpdateInput, isStaff bool) error {
	contentEdit := input.Title != nil || input.Description != nil || input.Urgency != nil

	if !isStaff {
		// Owner path: content edits only while OPEN, status only via the
		// transition rules, never department or feedback.
		if input.Department != nil || input.Feedback != nil {
			return apperrors.NewForbidden("only agents or admins may set department or feedback")
		}
		if contentEdit && ticket.Status != domain.TicketStatusOpen {
			return apperrors.NewForbidden("ticket content can only be edited while the ticket is open")
		}
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return apperrors.NewValidationError("title cannot be empty", nil)
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		return apperrors.NewValidationError("description cannot be empty", nil)
	}
	if input.Urgency != nil && !domain.ValidUrgency(*input.Urgency) {
		return apperrors.NewValidationError("urgency must be one of LOW, MEDIUM, HIGH", nil)
	}
	if input.Department != nil {
		if *input.Department != domain.DepartmentIT && *input.Department != domain.DepartmentHR {
			return apperrors.NewValidationError("department must be IT or HR", nil)
		}
		if ticket.MisuseFlag {
			return apperrors.NewConflict("misuse-flagged tickets cannot be routed", map[string]any{"ticket_id": ticket.ID})
		}
	}
	return nil
}

func applyFieldUpdates(ticket *domain.Ticket, input TicketUpdateInput) {
	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Urgency != nil {
		ticket.Urgency = *input.Urgency
	}
	if input.Department != nil {
		ticket.Department = *input.Department
	}
	if input.Feedback != nil {
		ticket.Feedback = input.Feedback
	}
}

func generateTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "TKT-" + strconv.FormatInt(now.Unix(), 10) + "-" + suffix
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
