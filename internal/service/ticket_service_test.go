package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

type ticketServiceFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	violations *fakeViolationRepo
	classifier *fakeClassifier
	dispatcher *recordingDispatcher
}

func newTicketServiceFixture() *ticketServiceFixture {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	violations := &fakeViolationRepo{}
	classifier := newFakeClassifier()
	dispatcher := &recordingDispatcher{}

	classifier.respond("moderation_verdict", safeVerdict())
	classifier.respond("route_decision", itRoute())

	itDept := domain.DepartmentIT
	users.agents[domain.DepartmentIT] = &domain.User{
		ID: "agent-it", Role: domain.RoleAgent, Department: &itDept, Active: true,
	}
	hrDept := domain.DepartmentHR
	users.agents[domain.DepartmentHR] = &domain.User{
		ID: "agent-hr", Role: domain.RoleAgent, Department: &hrDept, Active: true,
	}

	svc := NewTicketService(TicketDependencies{
		TicketRepo: tickets,
		Limiter:    NewRateLimiter(tickets, limiterConfig()),
		Gate:       NewModerationGate(classifier, violations, dispatcher, moderationConfig(), testLogger()),
		Router:     NewDepartmentRouter(classifier, testLogger()),
		Assignment: NewSingleAgentResolver(users),
		Dispatcher: dispatcher,
		Logger:     testLogger(),
	})
	return &ticketServiceFixture{
		svc:        svc,
		tickets:    tickets,
		users:      users,
		violations: violations,
		classifier: classifier,
		dispatcher: dispatcher,
	}
}

func endUser(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleUser, Active: true}
}

func agentUser(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleAgent, Active: true}
}

func adminUser(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleAdmin, Active: true}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestCreateTicketRoutesAndAssigns(t *testing.T) {
	f := newTicketServiceFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Laptop will not boot",
		Description: "Screen stays black after pressing the power button",
		Urgency:     domain.TicketUrgencyHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, domain.DepartmentIT, ticket.Department)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, "agent-it", *ticket.AssigneeID)
	assert.NotEmpty(t, ticket.ID)

	require.Len(t, f.dispatcher.byType(events.EventTicketCreated), 1)
}

func TestCreateTicketDefaultsUrgency(t *testing.T) {
	f := newTicketServiceFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Need software installed",
		Description: "Please install the design suite on my machine",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketUrgencyMedium, ticket.Urgency)
}

func TestCreateTicketValidatesInput(t *testing.T) {
	f := newTicketServiceFixture()

	_, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{Title: "  ", Description: "x"})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	_, err = f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title: "t", Description: "d", Urgency: "URGENT",
	})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestCreateTicketRateLimited(t *testing.T) {
	f := newTicketServiceFixture()

	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
			Title:       fmt.Sprintf("Issue number %d", i),
			Description: "Something different broke again today",
		})
		require.NoError(t, err)
	}

	_, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Issue number six",
		Description: "One more problem",
	})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", domainErr.Code)
	assert.Equal(t, 429, domainErr.HTTPStatus)

	// Another user is unaffected.
	_, err = f.svc.CreateTicket(context.Background(), endUser("u2"), TicketCreateInput{
		Title:       "Separate problem",
		Description: "My account is locked out",
	})
	assert.NoError(t, err)
}

func TestCreateTicketRejectedContentIsNotPersisted(t *testing.T) {
	f := newTicketServiceFixture()
	f.classifier.respond("moderation_verdict",
		`{"is_harmful": true, "confidence": 0.9, "category": "spam", "reason": "promo"}`)

	_, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Buy now limited time offer",
		Description: "Great deals on watches",
	})
	require.Error(t, err)
	assert.Equal(t, "CONTENT_REJECTED", errorCode(t, err))

	assert.Empty(t, f.tickets.tickets)
	assert.Len(t, f.violations.violations, 1)
}

func TestCreateTicketWithoutAgentStaysUnassigned(t *testing.T) {
	f := newTicketServiceFixture()
	delete(f.users.agents, domain.DepartmentIT)

	ticket, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Monitor flickers",
		Description: "External monitor flickers every few seconds",
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssigneeID)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
}

func TestCreateTicketPersistFailureIsRetryable(t *testing.T) {
	f := newTicketServiceFixture()
	f.tickets.createErr = errors.New("disk full")

	_, err := f.svc.CreateTicket(context.Background(), endUser("u1"), TicketCreateInput{
		Title:       "Email bounces",
		Description: "All outgoing mail is rejected",
	})
	require.Error(t, err)
	assert.Equal(t, "PERSISTENCE_ERROR", errorCode(t, err))
}

func seedAssignedTicket(f *ticketServiceFixture, id, owner string, status domain.TicketStatus) {
	assignee := "agent-it"
	f.tickets.seed(domain.Ticket{
		ID:          id,
		UserID:      owner,
		AssigneeID:  &assignee,
		Title:       "Seeded ticket",
		Description: "Seeded for transition tests",
		Urgency:     domain.TicketUrgencyMedium,
		Status:      status,
		Department:  domain.DepartmentIT,
	})
}

func TestOwnerResolvesOwnTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusAssigned)

	status := domain.TicketStatusResolved
	ticket, err := f.svc.UpdateTicket(context.Background(), endUser("u1"), "t1", TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.Len(t, f.dispatcher.byType(events.EventTicketStatusChanged), 1)
}

func TestAgentCannotResolveTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusAssigned)

	status := domain.TicketStatusResolved
	_, err := f.svc.UpdateTicket(context.Background(), agentUser("agent-it"), "t1", TicketUpdateInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(t, err))
}

func TestAssignedAgentClosesResolvedTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusResolved)

	ticket, err := f.svc.CloseTicket(context.Background(), agentUser("agent-it"), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	require.NotNil(t, ticket.ClosedAt)
}

func TestOwnerCannotCloseTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusResolved)

	_, err := f.svc.CloseTicket(context.Background(), endUser("u1"), "t1")
	require.Error(t, err)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(t, err))
}

func TestUnassignedAgentCannotCloseTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusResolved)

	_, err := f.svc.CloseTicket(context.Background(), agentUser("agent-other"), "t1")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestAdminForceClosesFromAnyActiveState(t *testing.T) {
	f := newTicketServiceFixture()
	for i, status := range []domain.TicketStatus{
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusResolved,
	} {
		id := fmt.Sprintf("t%d", i)
		seedAssignedTicket(f, id, "u1", status)
		ticket, err := f.svc.CloseTicket(context.Background(), adminUser("admin"), id)
		require.NoError(t, err, "force close from %s", status)
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
		assert.NotNil(t, ticket.ClosedAt)
	}
}

func TestClosedTicketRejectsEveryTransition(t *testing.T) {
	f := newTicketServiceFixture()
	closedAt := time.Now()
	assignee := "agent-it"
	f.tickets.seed(domain.Ticket{
		ID: "t1", UserID: "u1", AssigneeID: &assignee,
		Status: domain.TicketStatusClosed, Department: domain.DepartmentIT,
		Title: "done", Description: "finished", Urgency: domain.TicketUrgencyLow,
		ClosedAt: &closedAt,
	})

	for _, next := range []domain.TicketStatus{
		domain.TicketStatusOpen, domain.TicketStatusAssigned, domain.TicketStatusResolved,
	} {
		status := next
		_, err := f.svc.UpdateTicket(context.Background(), adminUser("admin"), "t1", TicketUpdateInput{Status: &status})
		require.Error(t, err, "transition to %s", next)
		assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(t, err))
	}
}

func TestAgentCannotReopenClosedTicket(t *testing.T) {
	f := newTicketServiceFixture()
	closedAt := time.Now()
	assignee := "agent-it"
	f.tickets.seed(domain.Ticket{
		ID: "t1", UserID: "u1", AssigneeID: &assignee,
		Status: domain.TicketStatusClosed, Department: domain.DepartmentIT,
		Title: "done", Description: "finished", Urgency: domain.TicketUrgencyLow,
		ClosedAt: &closedAt,
	})

	status := domain.TicketStatusAssigned
	_, err := f.svc.UpdateTicket(context.Background(), agentUser("agent-it"), "t1", TicketUpdateInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(t, err))
}

func TestReopenResolvedTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusResolved)

	status := domain.TicketStatusAssigned
	ticket, err := f.svc.UpdateTicket(context.Background(), agentUser("agent-it"), "t1", TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Nil(t, ticket.ClosedAt)
}

func TestOwnerEditsContentOnlyWhileOpen(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "open", "u1", domain.TicketStatusOpen)
	seedAssignedTicket(f, "assigned", "u1", domain.TicketStatusAssigned)

	ticket, err := f.svc.UpdateTicket(context.Background(), endUser("u1"), "open", TicketUpdateInput{
		Title: strPtr("Clearer title"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Clearer title", ticket.Title)

	_, err = f.svc.UpdateTicket(context.Background(), endUser("u1"), "assigned", TicketUpdateInput{
		Title: strPtr("Too late"),
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestOwnerCannotSetDepartmentOrFeedback(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusOpen)

	dept := domain.DepartmentHR
	_, err := f.svc.UpdateTicket(context.Background(), endUser("u1"), "t1", TicketUpdateInput{Department: &dept})
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	_, err = f.svc.UpdateTicket(context.Background(), endUser("u1"), "t1", TicketUpdateInput{Feedback: strPtr("nice")})
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestStrangerCannotTouchTicket(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusOpen)

	_, err := f.svc.UpdateTicket(context.Background(), endUser("u2"), "t1", TicketUpdateInput{Title: strPtr("mine now")})
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	_, err = f.svc.GetTicket(context.Background(), endUser("u2"), "t1")
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestMisuseFlaggedTicketCannotBeRerouted(t *testing.T) {
	f := newTicketServiceFixture()
	f.tickets.seed(domain.Ticket{
		ID: "t1", UserID: "u1",
		Status: domain.TicketStatusOpen, Department: domain.DepartmentUnset,
		Title: "flagged", Description: "flagged", Urgency: domain.TicketUrgencyLow,
		MisuseFlag: true,
	})

	dept := domain.DepartmentHR
	_, err := f.svc.UpdateTicket(context.Background(), adminUser("admin"), "t1", TicketUpdateInput{Department: &dept})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", errorCode(t, err))
}

func TestClosingTicketEmitsClosureSignal(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusResolved)

	_, err := f.svc.CloseTicket(context.Background(), adminUser("admin"), "t1")
	require.NoError(t, err)

	// The closure event is published from a detached goroutine.
	require.Eventually(t, func() bool {
		return len(f.dispatcher.byType(events.EventTicketClosed)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newTicketServiceFixture()
	_, err := f.svc.GetTicket(context.Background(), endUser("u1"), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestListTicketsRequiresStaff(t *testing.T) {
	f := newTicketServiceFixture()
	_, err := f.svc.ListTickets(context.Background(), endUser("u1"), TicketListQuery{})
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestListTicketsFiltersByDepartment(t *testing.T) {
	f := newTicketServiceFixture()
	seedAssignedTicket(f, "t1", "u1", domain.TicketStatusAssigned)
	f.tickets.seed(domain.Ticket{
		ID: "t2", UserID: "u2", Status: domain.TicketStatusAssigned,
		Department: domain.DepartmentHR, Title: "hr", Description: "hr", Urgency: domain.TicketUrgencyLow,
	})

	tickets, err := f.svc.ListTickets(context.Background(), adminUser("admin"), TicketListQuery{
		Department: domain.DepartmentHR,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "t2", tickets[0].ID)
}
