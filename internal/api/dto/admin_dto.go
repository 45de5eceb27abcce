package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// RunMisuseScanRequest optionally overrides the lookback window.
type RunMisuseScanRequest struct {
	WindowHours int `json:"window_hours"`
}

// ScanResultResponse reports a completed manual scan.
type ScanResultResponse struct {
	UsersScanned   int       `json:"users_scanned"`
	ReportsCreated int       `json:"reports_created"`
	Failures       int       `json:"failures"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// NewScanResultResponse maps scan statistics.
func NewScanResultResponse(stats *domain.ScanStats) ScanResultResponse {
	return ScanResultResponse{
		UsersScanned:   stats.UsersScanned,
		ReportsCreated: stats.ReportsCreated,
		Failures:       stats.Failures,
		StartedAt:      stats.StartedAt,
		FinishedAt:     stats.FinishedAt,
	}
}

// ViolationResponse exposes a recorded moderation rejection.
type ViolationResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reason      string    `json:"reason"`
	Confidence  float64   `json:"confidence"`
	Reviewed    bool      `json:"reviewed"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewViolationListResponse maps domain violations.
func NewViolationListResponse(violations []domain.Violation) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationResponse{
			ID:          v.ID,
			UserID:      v.UserID,
			Category:    string(v.Category),
			Severity:    string(v.Severity),
			Title:       v.Title,
			Description: v.Description,
			Reason:      v.Reason,
			Confidence:  v.Confidence,
			Reviewed:    v.Reviewed,
			CreatedAt:   v.CreatedAt,
		})
	}
	return out
}

// MisuseReportResponse exposes a scanner finding.
type MisuseReportResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	DetectionDate time.Time             `json:"detection_date"`
	Type          string                `json:"type"`
	Severity      string                `json:"severity"`
	Evidence      domain.MisuseEvidence `json:"evidence"`
	Confidence    float64               `json:"confidence"`
	Reasoning     string                `json:"reasoning"`
	Reviewed      bool                  `json:"reviewed"`
	ActionTaken   *string               `json:"action_taken,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NewMisuseReportListResponse maps domain reports.
func NewMisuseReportListResponse(reports []domain.MisuseReport) []MisuseReportResponse {
	out := make([]MisuseReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, MisuseReportResponse{
			ID:            r.ID,
			UserID:        r.UserID,
			DetectionDate: r.DetectionDate,
			Type:          r.Type,
			Severity:      string(r.Severity),
			Evidence:      r.Evidence,
			Confidence:    r.Confidence,
			Reasoning:     r.Reasoning,
			Reviewed:      r.Reviewed,
			ActionTaken:   r.ActionTaken,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out
}
