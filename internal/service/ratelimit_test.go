package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

func limiterConfig() config.RateLimitConfig {
	return config.RateLimitConfig{WindowHours: 24, MaxTickets: 5}
}

func seedUserTickets(repo *fakeTicketRepo, userID string, n int, createdAt time.Time) {
	for i := 0; i < n; i++ {
		repo.seed(domain.Ticket{
			ID:        fmt.Sprintf("seed-%s-%d", userID, i),
			UserID:    userID,
			Status:    domain.TicketStatusAssigned,
			CreatedAt: createdAt,
		})
	}
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	repo := newFakeTicketRepo()
	seedUserTickets(repo, "u1", 4, time.Now().Add(-time.Hour))

	limiter := NewRateLimiter(repo, limiterConfig())
	ok, err := limiter.CanCreate(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterRejectsAtLimit(t *testing.T) {
	repo := newFakeTicketRepo()
	seedUserTickets(repo, "u1", 5, time.Now().Add(-time.Hour))

	limiter := NewRateLimiter(repo, limiterConfig())
	ok, err := limiter.CanCreate(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiterIgnoresTicketsOutsideWindow(t *testing.T) {
	repo := newFakeTicketRepo()
	seedUserTickets(repo, "u1", 5, time.Now().Add(-25*time.Hour))

	limiter := NewRateLimiter(repo, limiterConfig())
	ok, err := limiter.CanCreate(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterScopedPerUser(t *testing.T) {
	repo := newFakeTicketRepo()
	seedUserTickets(repo, "heavy", 5, time.Now().Add(-time.Hour))

	limiter := NewRateLimiter(repo, limiterConfig())
	ok, err := limiter.CanCreate(context.Background(), "other", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterCountFailureIsNotAnAllow(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.countErr = errors.New("connection refused")

	limiter := NewRateLimiter(repo, limiterConfig())
	ok, err := limiter.CanCreate(context.Background(), "u1", time.Now())
	require.Error(t, err)
	assert.False(t, ok)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PERSISTENCE_ERROR", domainErr.Code)
}
