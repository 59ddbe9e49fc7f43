package handler

import (
	"context"
	"time"

	"quizly/internal/domain"
	"quizly/internal/dto"
	"quizly/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	cache domain.Cache
}

// NewHealthHandler creates a health handler. cache may be nil when Redis is
// not configured.
func NewHealthHandler(db Pinger, cache domain.Cache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health godoc
// @Summary Health check
// @Description Reports database and Redis reachability.
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	resp := dto.HealthResponse{Status: "ok", Database: "ok", Redis: "disabled"}
	if err := h.db.PingContext(ctx); err != nil {
		logger.Get().Error("Health check: database unreachable", zap.Error(err))
		resp.Status, resp.Database = "unavailable", "unreachable"
	}
	if h.cache != nil {
		resp.Redis = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			logger.Get().Error("Health check: redis unreachable", zap.Error(err))
			resp.Status, resp.Redis = "unavailable", "unreachable"
		}
	}

	status := fiber.StatusOK
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
