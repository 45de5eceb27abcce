package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/ai"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

const routingSystemPrompt = `You are a ticket router for an internal helpdesk with
exactly two departments: IT (hardware, software, network, accounts and access)
and HR (payroll, leave, benefits, policy, workplace matters). Every ticket must
go to one of them; there is no other option. Respond with the requested JSON.`

var routingSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"department": map[string]any{
			"type": "string",
			"enum": []string{"IT", "HR"},
		},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"reasoning":  map[string]any{"type": "string"},
	},
	"required":             []string{"department", "confidence", "reasoning"},
	"additionalProperties": false,
}

// DepartmentRouter assigns every ticket to exactly one of IT or HR. The
// primary path is the LLM classifier; any provider failure or out-of-enum
// output degrades to keyword scoring, so classification never errors and
// never returns unset.
type DepartmentRouter struct {
	classifier ai.Classifier
	logger     *zap.Logger
}

// NewDepartmentRouter constructs the router.
func NewDepartmentRouter(classifier ai.Classifier, logger *zap.Logger) *DepartmentRouter {
	return &DepartmentRouter{classifier: classifier, logger: logger}
}

// Classify routes the ticket content to a department.
func (r *DepartmentRouter) Classify(ctx context.Context, title, description string) domain.RouteDecision {
	decision, err := r.classify(ctx, title, description)
	if err != nil {
		r.logger.Warn("routing classifier unavailable, using fallback", zap.Error(err))
		return fallbackRoute(title, description)
	}
	return decision
}

type routingOutput struct {
	Department string  `json:"department"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (r *DepartmentRouter) classify(ctx context.Context, title, description string) (domain.RouteDecision, error) {
	user := fmt.Sprintf("Title: %s\n\nDescription: %s", title, description)
	raw, err := r.classifier.GenerateJSON(ctx, routingSystemPrompt, user, "route_decision", routingSchema)
	if err != nil {
		return domain.RouteDecision{}, err
	}

	var out routingOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("%w: %v", ai.ErrInvalidOutput, err)
	}
	var dept domain.Department
	switch out.Department {
	case "IT":
		dept = domain.DepartmentIT
	case "HR":
		dept = domain.DepartmentHR
	default:
		return domain.RouteDecision{}, ai.ErrInvalidOutput
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return domain.RouteDecision{}, ai.ErrInvalidOutput
	}
	return domain.RouteDecision{
		Department: dept,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
	}, nil
}
