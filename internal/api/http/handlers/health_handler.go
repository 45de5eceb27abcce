package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler reports liveness and readiness.
type HealthHandler struct {
	version string
	pg      *persistence.Postgres
	redis   *persistence.Redis
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(version string, pg *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{version: version, pg: pg, redis: redis}
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready handles GET /readyz. Postgres is required; Redis only degrades
// scan-lock coordination, so its failure is reported but not fatal.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{"postgres": "ok", "redis": "ok"}
	status := fiber.StatusOK

	if err := h.pg.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = fiber.StatusServiceUnavailable
	}
	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = "degraded: " + err.Error()
	}

	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
