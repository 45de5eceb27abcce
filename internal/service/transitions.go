package service

import (
	"net/http"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// Status graph. CLOSED is terminal and accepts nothing, not even from admins.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:     {domain.TicketStatusAssigned, domain.TicketStatusResolved},
	domain.TicketStatusAssigned: {domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusResolved: {domain.TicketStatusClosed, domain.TicketStatusAssigned},
	domain.TicketStatusClosed:   {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// authorizeTransition checks both the status graph and the role constraints
// for a requested transition:
//   - only the owning user may move a ticket into RESOLVED;
//   - RESOLVED -> CLOSED requires the assigned agent or an admin;
//   - admins may force-close from any non-terminal state;
//   - everything else requires the assigned agent or an admin.
func authorizeTransition(actor *domain.User, ticket *domain.Ticket, next domain.TicketStatus) error {
	current := ticket.Status

	adminForceClose := actor.Role == domain.RoleAdmin &&
		next == domain.TicketStatusClosed &&
		current != domain.TicketStatusClosed

	if !isValidTransition(current, next) && !adminForceClose {
		return apperrors.NewIllegalTransition(current, next)
	}

	switch next {
	case domain.TicketStatusResolved:
		if actor.ID != ticket.UserID {
			return roleTransitionError(current, next, "only the ticket owner may resolve a ticket")
		}
	case domain.TicketStatusClosed:
		if actor.Role == domain.RoleAdmin {
			return nil
		}
		if !isAssignedAgent(actor, ticket) {
			return roleTransitionError(current, next, "only the assigned agent or an admin may close a ticket")
		}
	default:
		if actor.Role != domain.RoleAdmin && !isAssignedAgent(actor, ticket) {
			return roleTransitionError(current, next, "only the assigned agent or an admin may change ticket status")
		}
	}
	return nil
}

func isAssignedAgent(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.Role == domain.RoleAgent &&
		ticket.AssigneeID != nil &&
		*ticket.AssigneeID == actor.ID
}

func roleTransitionError(current, next domain.TicketStatus, message string) error {
	return apperrors.NewDomainError("ILLEGAL_TRANSITION", message, http.StatusConflict, map[string]any{
		"current_status":   current,
		"requested_status": next,
	})
}
