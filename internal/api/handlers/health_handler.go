package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/churnsight/backend/internal/storage/sqlite"
)

// Pinger is implemented by dependencies that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage           *sqlite.Client
	store             Pinger // exemplar store, may be nil for in-memory
	cache             Pinger // redis, may be nil when disabled
	insightConfigured bool
}

func NewHealthHandler(storage *sqlite.Client, store, cache Pinger, insightConfigured bool) *HealthHandler {
	return &HealthHandler{
		storage:           storage,
		store:             store,
		cache:             cache,
		insightConfigured: insightConfigured,
	}
}

func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// Health reports per-dependency status. The database is required; the
// exemplar store and cache only degrade the service.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	status := "healthy"
	code := fiber.StatusOK

	if err := h.storage.Ping(ctx); err != nil {
		deps["sqlite"] = "down"
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	} else {
		deps["sqlite"] = "up"
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			deps["exemplar_store"] = "down"
			if status == "healthy" {
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		} else {
			deps["exemplar_store"] = "up"
		}
	}

	// Without provider credentials every assessment runs on the rule-based
	// fallback, so the service is up but degraded.
	if h.insightConfigured {
		deps["insight_provider"] = "configured"
	} else {
		deps["insight_provider"] = "fallback_only"
		if status == "healthy" {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			deps["redis"] = "down"
			if status == "healthy" {
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		} else {
			deps["redis"] = "up"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"dependencies": deps,
		"time":         time.Now().Unix(),
	})
}
