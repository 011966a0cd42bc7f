package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lunarcity/ticketdesk/internal/api/dto"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/service"
	apperrors "github.com/lunarcity/ticketdesk/pkg/util"
)

// StatsHandler serves aggregate statistics endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// WindowStats GET /stats?window=day|week|month|all.
func (h *StatsHandler) WindowStats(c *fiber.Ctx) error {
	window := domain.StatsWindow(c.Query("window", string(domain.StatsWindowAll)))
	stats, err := h.stats.Window(c.UserContext(), window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketStatsResponse(stats)})
}

// UserStats GET /stats/users/:id.
func (h *StatsHandler) UserStats(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("id"))
	if userID == "" {
		return apperrors.NewValidationError("user id required", nil)
	}
	stats, err := h.stats.User(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserTicketStatsResponse(stats)})
}
