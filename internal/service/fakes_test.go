package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

// In-memory test doubles for the repository and classifier interfaces.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int

	createErr error
	updateErr error
	countErr  error
	listErr   error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if ticket.ID == "" {
		r.seq++
		ticket.ID = fmt.Sprintf("TKT-%d", r.seq)
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Department != nil && ticket.Department != *filter.Department {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	count := 0
	for _, ticket := range r.tickets {
		if ticket.UserID == userID && !ticket.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) ListByUserSince(_ context.Context, userID string, since time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.UserID == userID && !ticket.CreatedAt.Before(since) {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) seed(tickets ...domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range tickets {
		clone := tickets[i]
		if clone.CreatedAt.IsZero() {
			clone.CreatedAt = time.Now()
		}
		r.tickets[clone.ID] = &clone
	}
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	endUsers []domain.User
	agents   map[domain.Department]*domain.User
	listErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*domain.User),
		agents: make(map[domain.Department]*domain.User),
	}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) ListActiveEndUsers(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	if offset >= len(r.endUsers) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.endUsers) {
		end = len(r.endUsers)
	}
	return append([]domain.User{}, r.endUsers[offset:end]...), nil
}

func (r *fakeUserRepo) FindActiveAgentByDepartment(_ context.Context, dept domain.Department) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[dept]
	if !ok {
		return nil, nil
	}
	clone := *agent
	return &clone, nil
}

type fakeViolationRepo struct {
	mu         sync.Mutex
	violations []domain.Violation
	seq        int
	createErr  error
	countErr   error
}

func (r *fakeViolationRepo) Create(_ context.Context, violation *domain.Violation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	violation.ID = fmt.Sprintf("vio-%d", r.seq)
	violation.CreatedAt = time.Now()
	r.violations = append(r.violations, *violation)
	return nil
}

func (r *fakeViolationRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Violation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Violation
	for _, v := range r.violations {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeViolationRepo) CountByUserSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	count := 0
	for _, v := range r.violations {
		if v.UserID == userID && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeReportRepo struct {
	mu        sync.Mutex
	reports   []domain.MisuseReport
	seq       int
	createErr error
}

func (r *fakeReportRepo) CreateIfAbsent(_ context.Context, report *domain.MisuseReport) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	for _, existing := range r.reports {
		if existing.UserID == report.UserID && existing.DetectionDate.Equal(report.DetectionDate) {
			return false, nil
		}
	}
	r.seq++
	report.ID = fmt.Sprintf("rep-%d", r.seq)
	report.CreatedAt = time.Now()
	r.reports = append(r.reports, *report)
	return true, nil
}

func (r *fakeReportRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.MisuseReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MisuseReport
	for _, report := range r.reports {
		if report.UserID == userID {
			out = append(out, report)
		}
	}
	return out, nil
}

// fakeClassifier returns a fixed JSON payload or error per schema name.
type fakeClassifier struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     int
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{responses: make(map[string]string)}
}

func (c *fakeClassifier) GenerateJSON(_ context.Context, _, _, schemaName string, _ map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	raw, ok := c.responses[schemaName]
	if !ok {
		return nil, fmt.Errorf("no canned response for %s", schemaName)
	}
	return json.RawMessage(raw), nil
}

func (c *fakeClassifier) respond(schemaName, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[schemaName] = raw
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func strPtr(s string) *string { return &s }

func safeVerdict() string {
	return `{"is_harmful": false, "confidence": 0.1, "category": "none", "reason": "ok"}`
}

func itRoute() string {
	return `{"department": "IT", "confidence": 0.92, "reasoning": "hardware issue"}`
}

func repeatTitles(title string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, strings.TrimSpace(title))
	}
	return out
}
