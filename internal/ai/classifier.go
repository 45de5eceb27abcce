// Package ai provides the LLM classification capability the moderation gate
// and department router depend on. Callers hold only the Classifier
// interface; the deterministic fallbacks live with the callers, so an
// unavailable provider degrades the pipeline instead of failing it.
package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidOutput signals the provider responded but the payload did not
// match the requested schema. Callers treat it like any provider failure.
var ErrInvalidOutput = errors.New("ai: output failed schema validation")

// Classifier produces schema-constrained JSON from a system/user prompt pair.
type Classifier interface {
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (json.RawMessage, error)
}
