package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"civicwatch/internal/models"
)

const healthTimeout = 2 * time.Second

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness together with database reachability.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check responds 200 when the database answers a ping, 503 otherwise.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.HealthResponse{
			Status:   "unhealthy",
			Database: "unreachable",
		})
	}
	return c.JSON(models.HealthResponse{Status: "ok", Database: "ok"})
}
