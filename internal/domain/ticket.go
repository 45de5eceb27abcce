package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAssigned TicketStatus = "ASSIGNED"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketUrgency enumerates how quickly the requester needs help.
type TicketUrgency string

const (
	TicketUrgencyLow    TicketUrgency = "LOW"
	TicketUrgencyMedium TicketUrgency = "MEDIUM"
	TicketUrgencyHigh   TicketUrgency = "HIGH"
)

// ValidUrgency reports whether the value is one of the known urgencies.
func ValidUrgency(u TicketUrgency) bool {
	switch u {
	case TicketUrgencyLow, TicketUrgencyMedium, TicketUrgencyHigh:
		return true
	}
	return false
}

// Department enumerates routing targets. The empty value means unset, which
// only occurs before routing completes or on misuse-flagged tickets.
type Department string

const (
	DepartmentIT    Department = "IT"
	DepartmentHR    Department = "HR"
	DepartmentUnset Department = ""
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	UserID      string
	AssigneeID  *string
	Title       string
	Description string
	Urgency     TicketUrgency
	Status      TicketStatus
	Department  Department
	MisuseFlag  bool
	Feedback    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsTerminal reports whether the ticket accepts no further transitions.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusClosed
}
