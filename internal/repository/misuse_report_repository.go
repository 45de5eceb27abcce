package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// MisuseReportRepository persists scanner findings.
type MisuseReportRepository interface {
	// CreateIfAbsent inserts the report unless one already exists for the
	// same user and detection date. It reports whether a row was written,
	// so concurrent or re-triggered runs stay idempotent without locks.
	CreateIfAbsent(ctx context.Context, report *domain.MisuseReport) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MisuseReport, error)
}

type misuseReportRepository struct {
	pool *pgxpool.Pool
}

// NewMisuseReportRepository instantiates repository.
func NewMisuseReportRepository(pool *pgxpool.Pool) MisuseReportRepository {
	return &misuseReportRepository{pool: pool}
}

func (r *misuseReportRepository) CreateIfAbsent(ctx context.Context, report *domain.MisuseReport) (bool, error) {
	evidence, err := json.Marshal(report.Evidence)
	if err != nil {
		return false, err
	}
	const query = `
        INSERT INTO misuse_reports (user_id, detection_date, type, severity, evidence, confidence, reasoning)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (user_id, detection_date) DO NOTHING
        RETURNING id, reviewed, created_at`
	rows, err := r.pool.Query(ctx, query,
		report.UserID,
		report.DetectionDate,
		report.Type,
		report.Severity,
		evidence,
		report.Confidence,
		report.Reasoning,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		// conflict: a report for this user and day already exists
		return false, rows.Err()
	}
	if err := rows.Scan(&report.ID, &report.Reviewed, &report.CreatedAt); err != nil {
		return false, err
	}
	return true, rows.Err()
}

func (r *misuseReportRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.MisuseReport, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, user_id, detection_date, type, severity, evidence, confidence, reasoning, reviewed, action_taken, created_at
        FROM misuse_reports WHERE user_id=$1 ORDER BY detection_date DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MisuseReport
	for rows.Next() {
		var report domain.MisuseReport
		var evidence []byte
		if err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.DetectionDate,
			&report.Type,
			&report.Severity,
			&evidence,
			&report.Confidence,
			&report.Reasoning,
			&report.Reviewed,
			&report.ActionTaken,
			&report.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &report.Evidence); err != nil {
				return nil, err
			}
		}
		result = append(result, report)
	}
	return result, rows.Err()
}
