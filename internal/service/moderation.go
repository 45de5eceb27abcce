package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/ai"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util"
)

const moderationSystemPrompt = `You are a content moderator for an internal helpdesk.
Classify the submitted ticket content. Flag profanity, harassment, spam or
promotional content, and attempts to abuse or probe the system. Be
conservative: only flag clear violations. Respond with the requested JSON.`

var moderationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_harmful": map[string]any{"type": "boolean"},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"category": map[string]any{
			"type": "string",
			"enum": []string{"none", "profanity", "spam", "inappropriate"},
		},
		"reason": map[string]any{"type": "string"},
	},
	"required":             []string{"is_harmful", "confidence", "category", "reason"},
	"additionalProperties": false,
}

// ModerationGate screens ticket content before anything is persisted. The
// primary path is the LLM classifier; provider failures and malformed output
// fall back to the keyword heuristic, so evaluation itself never errors.
type ModerationGate struct {
	classifier ai.Classifier
	violations repository.ViolationRepository
	dispatcher events.Dispatcher
	cfg        config.ModerationConfig
	logger     *zap.Logger
}

// NewModerationGate constructs the gate.
func NewModerationGate(classifier ai.Classifier, violations repository.ViolationRepository, dispatcher events.Dispatcher, cfg config.ModerationConfig, logger *zap.Logger) *ModerationGate {
	return &ModerationGate{
		classifier: classifier,
		violations: violations,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Evaluate classifies the content and returns a verdict.
func (g *ModerationGate) Evaluate(ctx context.Context, title, description string) domain.ModerationVerdict {
	verdict, err := g.classify(ctx, title, description)
	if err != nil {
		g.logger.Warn("moderation classifier unavailable, using fallback", zap.Error(err))
		return fallbackModeration(title, description, g.cfg.FallbackConfidence)
	}
	return verdict
}

// Screen evaluates the content and, when the verdict is harmful at or above
// the confidence threshold, records a Violation and returns a structured
// rejection. Below-threshold verdicts are treated as safe.
func (g *ModerationGate) Screen(ctx context.Context, userID, title, description string) error {
	verdict := g.Evaluate(ctx, title, description)
	if !verdict.IsHarmful || verdict.Confidence < g.cfg.ConfidenceThreshold {
		return nil
	}

	violation := &domain.Violation{
		UserID:      userID,
		Category:    verdict.Category,
		Severity:    deriveSeverity(verdict),
		Title:       title,
		Description: description,
		Reason:      verdict.Reason,
		Confidence:  verdict.Confidence,
	}
	if err := g.violations.Create(ctx, violation); err != nil {
		return apperrors.NewPersistenceError(err)
	}
	publishEvent(ctx, g.dispatcher, events.Event{
		Type:  events.EventViolationRecorded,
		Actor: events.Actor{Role: domain.RoleUser, UserID: userID},
		Payload: events.ViolationRecordedPayload{
			ViolationID: violation.ID,
			UserID:      userID,
			Category:    violation.Category,
			Severity:    violation.Severity,
		},
	})
	g.logger.Info("ticket content rejected",
		zap.String("user_id", userID),
		zap.String("category", string(verdict.Category)),
		zap.Float64("confidence", verdict.Confidence))

	return apperrors.NewContentRejected(verdict.Category, remediationMessage(verdict.Category), title, description)
}

type moderationOutput struct {
	IsHarmful  bool    `json:"is_harmful"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	Reason     string  `json:"reason"`
}

func (g *ModerationGate) classify(ctx context.Context, title, description string) (domain.ModerationVerdict, error) {
	user := fmt.Sprintf("Title: %s\n\nDescription: %s", title, description)
	raw, err := g.classifier.GenerateJSON(ctx, moderationSystemPrompt, user, "moderation_verdict", moderationSchema)
	if err != nil {
		return domain.ModerationVerdict{}, err
	}

	var out moderationOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ModerationVerdict{}, fmt.Errorf("%w: %v", ai.ErrInvalidOutput, err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return domain.ModerationVerdict{}, ai.ErrInvalidOutput
	}
	category, ok := parseModerationCategory(out.Category)
	if !ok {
		return domain.ModerationVerdict{}, ai.ErrInvalidOutput
	}
	return domain.ModerationVerdict{
		IsHarmful:  out.IsHarmful,
		Confidence: out.Confidence,
		Category:   category,
		Reason:     out.Reason,
	}, nil
}

func parseModerationCategory(raw string) (domain.ModerationCategory, bool) {
	switch raw {
	case "none":
		return domain.ModerationCategoryNone, true
	case "profanity":
		return domain.ModerationCategoryProfanity, true
	case "spam":
		return domain.ModerationCategorySpam, true
	case "inappropriate":
		return domain.ModerationCategoryInappropriate, true
	}
	return "", false
}

// deriveSeverity grades a rejection from its confidence and category.
// Ambiguous verdicts stay low so admin review queues are not flooded.
func deriveSeverity(v domain.ModerationVerdict) domain.Severity {
	switch {
	case v.Confidence >= 0.95 && (v.Category == domain.ModerationCategoryProfanity || v.Category == domain.ModerationCategoryInappropriate):
		return domain.SeverityCritical
	case v.Confidence >= 0.85:
		return domain.SeverityHigh
	case v.Confidence >= 0.7:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func remediationMessage(category domain.ModerationCategory) string {
	switch category {
	case domain.ModerationCategoryProfanity:
		return "your ticket contains language that violates our content policy; please rephrase it and resubmit"
	case domain.ModerationCategorySpam:
		return "your ticket looks like promotional or spam content; please describe an actual support issue and resubmit"
	case domain.ModerationCategoryInappropriate:
		return "your ticket contains inappropriate content; please revise it and resubmit"
	default:
		return "your ticket was flagged by content moderation; please revise it and resubmit"
	}
}
