package domain

import "time"

// Misuse pattern identifiers recorded in report evidence.
const (
	PatternHighVolume        = "high_volume"
	PatternDuplicateTitles   = "duplicate_titles"
	PatternShortDescriptions = "short_descriptions"
)

// MisuseEvidence captures what the scanner saw. Stored as JSONB alongside the
// report.
type MisuseEvidence struct {
	TicketIDs      []string `json:"ticket_ids"`
	ContentSamples []string `json:"content_samples"`
	Patterns       []string `json:"patterns"`
	Description    string   `json:"description"`
}

// MisuseReport is a persisted, per-user finding from a scan run. At most one
// report exists per user per calendar day; the write is conditional on that
// uniqueness.
type MisuseReport struct {
	ID            string
	UserID        string
	DetectionDate time.Time
	Type          string
	Severity      Severity
	Evidence      MisuseEvidence
	Confidence    float64
	Reasoning     string
	Reviewed      bool
	ActionTaken   *string
	CreatedAt     time.Time
}

// ScanStats aggregates the outcome of a single scan run.
type ScanStats struct {
	UsersScanned   int       `json:"users_scanned"`
	ReportsCreated int       `json:"reports_created"`
	Failures       int       `json:"failures"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
