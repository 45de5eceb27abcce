package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

// RateLimiter bounds ticket creation per user over a trailing window. The
// window is derived from the ticket store on every check; nothing is cached.
type RateLimiter struct {
	tickets repository.TicketRepository
	cfg     config.RateLimitConfig
}

// NewRateLimiter constructs the limiter.
func NewRateLimiter(tickets repository.TicketRepository, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{tickets: tickets, cfg: cfg}
}

// CanCreate reports whether the user may create another ticket at `now`.
// A count-query failure surfaces as a retryable persistence error, never
// as an implicit allow.
func (l *RateLimiter) CanCreate(ctx context.Context, userID string, now time.Time) (bool, error) {
	count, err := l.tickets.CountByUserSince(ctx, userID, now.Add(-l.cfg.Window()))
	if err != nil {
		return false, apperrors.NewPersistenceError(err)
	}
	return count < l.cfg.MaxTickets, nil
}
