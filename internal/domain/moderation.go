package domain

// ModerationCategory classifies why content was flagged.
type ModerationCategory string

const (
	ModerationCategoryNone          ModerationCategory = "NONE"
	ModerationCategoryProfanity     ModerationCategory = "PROFANITY"
	ModerationCategorySpam          ModerationCategory = "SPAM"
	ModerationCategoryInappropriate ModerationCategory = "INAPPROPRIATE"
)

// ModerationVerdict is the structured output of a moderation pass, whether it
// came from the classifier or the deterministic fallback. It is transient:
// verdicts are never persisted, only the Violation derived from a rejection.
type ModerationVerdict struct {
	IsHarmful  bool
	Confidence float64
	Category   ModerationCategory
	Reason     string
}

// Severity grades violations and misuse reports for admin triage.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// RouteDecision is the outcome of department classification. Department is
// always IT or HR; routing has no unknown output.
type RouteDecision struct {
	Department Department
	Confidence float64
	Reasoning  string
}
