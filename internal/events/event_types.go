package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClosed        EventType = "ticket_closed"
	EventViolationRecorded   EventType = "violation_recorded"
	EventMisuseReportCreated EventType = "misuse_report_created"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Department domain.Department    `json:"department"`
	AssigneeID *string              `json:"assignee_id,omitempty"`
	Urgency    domain.TicketUrgency `json:"urgency"`
	Title      string               `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketClosedPayload is the fire-and-forget signal handed to the external
// summarization collaborator.
type TicketClosedPayload struct {
	TicketID string `json:"ticket_id"`
}

// ViolationRecordedPayload payload.
type ViolationRecordedPayload struct {
	ViolationID string                    `json:"violation_id"`
	UserID      string                    `json:"user_id"`
	Category    domain.ModerationCategory `json:"category"`
	Severity    domain.Severity           `json:"severity"`
}

// MisuseReportCreatedPayload is the contract handed to the external
// admin-notification collaborator for each new report.
type MisuseReportCreatedPayload struct {
	UserID    string          `json:"user_id"`
	ReportID  string          `json:"report_id"`
	Type      string          `json:"type"`
	Severity  domain.Severity `json:"severity"`
	Timestamp time.Time       `json:"timestamp"`
}
