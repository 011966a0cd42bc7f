package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lunarcity/ticketdesk/internal/api/dto"
	"github.com/lunarcity/ticketdesk/internal/auth"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/repository"
	apperrors "github.com/lunarcity/ticketdesk/pkg/util"
)

// StaffHandler manages staff authentication endpoints.
type StaffHandler struct {
	staff  repository.StaffRepository
	tokens *auth.TokenManager
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff repository.StaffRepository, tokens *auth.TokenManager) *StaffHandler {
	return &StaffHandler{staff: staff, tokens: tokens}
}

// Login POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.StaffID) == "" || req.Password == "" {
		return apperrors.NewValidationError("staff_id and password required", nil)
	}

	staff, err := h.staff.GetByID(c.UserContext(), req.StaffID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.MapError(err)
	}
	if !staff.Active {
		return apperrors.NewForbidden("staff account disabled")
	}
	if err := auth.ComparePassword(staff.PasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.StaffLoginResponse{Token: token, ExpiresAt: expiresAt}})
}
