package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// ViolationRepository persists moderation rejections.
type ViolationRepository interface {
	Create(ctx context.Context, violation *domain.Violation) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Violation, error)
	// CountByUserSince counts violations recorded at or after the cutoff,
	// used by the misuse scanner for risk scoring.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type violationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository instantiates repository.
func NewViolationRepository(pool *pgxpool.Pool) ViolationRepository {
	return &violationRepository{pool: pool}
}

func (r *violationRepository) Create(ctx context.Context, violation *domain.Violation) error {
	const query = `
        INSERT INTO violations (user_id, category, severity, attempted_title, attempted_description, reason, confidence)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, reviewed, created_at`
	return r.pool.QueryRow(ctx, query,
		violation.UserID,
		violation.Category,
		violation.Severity,
		violation.Title,
		violation.Description,
		violation.Reason,
		violation.Confidence,
	).Scan(&violation.ID, &violation.Reviewed, &violation.CreatedAt)
}

func (r *violationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Violation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_id, category, severity, attempted_title, attempted_description, reason, confidence, reviewed, created_at
        FROM violations WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Violation
	for rows.Next() {
		var v domain.Violation
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.Category,
			&v.Severity,
			&v.Title,
			&v.Description,
			&v.Reason,
			&v.Confidence,
			&v.Reviewed,
			&v.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *violationRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM violations WHERE user_id=$1 AND created_at >= $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
