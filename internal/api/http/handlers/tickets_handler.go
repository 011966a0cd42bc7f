package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lunarcity/ticketdesk/internal/api/dto"
	"github.com/lunarcity/ticketdesk/internal/auth"
	"github.com/lunarcity/ticketdesk/internal/service"
	apperrors "github.com/lunarcity/ticketdesk/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	engine *service.LifecycleEngine
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *service.LifecycleEngine) *TicketsHandler {
	return &TicketsHandler{engine: engine}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.OwnerID) == "" || strings.TrimSpace(req.Category) == "" {
		return apperrors.NewValidationError("owner_id and category required", nil)
	}

	ticket, err := h.engine.Create(c.UserContext(), req.OwnerID, req.Category)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.engine.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	ticket, err := h.engine.Claim(c.UserContext(), c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.engine.Close(c.UserContext(), c.Params("id"), principal.Staff.ID, req.Reason, service.OriginUser)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// RecordActivity POST /tickets/:id/activity.
func (h *TicketsHandler) RecordActivity(c *fiber.Ctx) error {
	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.engine.RecordActivity(c.UserContext(), c.Params("id"), req.ActorID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddParticipant POST /tickets/:id/participants.
func (h *TicketsHandler) AddParticipant(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.ParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	if err := h.engine.AddParticipant(c.UserContext(), c.Params("id"), principal.Staff.ID, req.UserID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RemoveParticipant DELETE /tickets/:id/participants/:userId.
func (h *TicketsHandler) RemoveParticipant(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	if err := h.engine.RemoveParticipant(c.UserContext(), c.Params("id"), principal.Staff.ID, c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
