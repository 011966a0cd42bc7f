package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lunarcity/ticketdesk/internal/api/dto"
	"github.com/lunarcity/ticketdesk/internal/auth"
	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/repository"
	apperrors "github.com/lunarcity/ticketdesk/pkg/util"
)

// AdminHandler manages setup panel bindings and staff provisioning.
type AdminHandler struct {
	panels repository.PanelRepository
	staff  repository.StaffRepository
	cfg    config.AuthConfig
}

// NewAdminHandler constructs handler.
func NewAdminHandler(panels repository.PanelRepository, staff repository.StaffRepository, cfg config.AuthConfig) *AdminHandler {
	return &AdminHandler{panels: panels, staff: staff, cfg: cfg}
}

// UpsertPanel PUT /admin/panels.
func (h *AdminHandler) UpsertPanel(c *fiber.Ctx) error {
	var req dto.PanelBindingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ChannelRef) == "" || strings.TrimSpace(req.MessageRef) == "" {
		return apperrors.NewValidationError("channel_ref and message_ref required", nil)
	}

	binding := repository.PanelBinding{ChannelRef: req.ChannelRef, MessageRef: req.MessageRef}
	if err := h.panels.Upsert(c.UserContext(), binding); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PanelBindingResponse(binding)})
}

// ListPanels GET /admin/panels.
func (h *AdminHandler) ListPanels(c *fiber.Ctx) error {
	bindings, err := h.panels.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.PanelBindingResponse, 0, len(bindings))
	for _, binding := range bindings {
		items = append(items, dto.PanelBindingResponse(binding))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeletePanel DELETE /admin/panels/:channelRef.
func (h *AdminHandler) DeletePanel(c *fiber.Ctx) error {
	if err := h.panels.Delete(c.UserContext(), c.Params("channelRef")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpsertStaff PUT /admin/staff.
func (h *AdminHandler) UpsertStaff(c *fiber.Ctx) error {
	var req dto.UpsertStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.StaffID) == "" || req.Password == "" {
		return apperrors.NewValidationError("staff_id and password required", nil)
	}
	if !domain.ValidStaffRole(req.Role) {
		return apperrors.MapError(&domain.ConfigError{Field: "staff role", Value: string(req.Role)})
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	member := &domain.StaffMember{
		ID:           req.StaffID,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         req.Role,
		Active:       active,
	}
	if err := h.staff.Upsert(c.UserContext(), member); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.StaffResponse{
		ID:          member.ID,
		DisplayName: member.DisplayName,
		Role:        member.Role,
		Active:      member.Active,
	}})
}

// ListStaff GET /admin/staff.
func (h *AdminHandler) ListStaff(c *fiber.Ctx) error {
	members, err := h.staff.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for _, member := range members {
		items = append(items, dto.StaffResponse{
			ID:          member.ID,
			DisplayName: member.DisplayName,
			Role:        member.Role,
			Active:      member.Active,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
