package domain

import "time"

// Violation records a creation attempt the moderation gate rejected. The full
// attempted content is kept so admins can review what was blocked and the
// misuse scanner can weigh repeat offenders.
type Violation struct {
	ID          string
	UserID      string
	Category    ModerationCategory
	Severity    Severity
	Title       string
	Description string
	Reason      string
	Confidence  float64
	Reviewed    bool
	CreatedAt   time.Time
}
