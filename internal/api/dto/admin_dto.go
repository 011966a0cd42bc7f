package dto

import "github.com/lunarcity/ticketdesk/internal/domain"

// PanelBindingRequest payload.
type PanelBindingRequest struct {
	ChannelRef string `json:"channel_ref"`
	MessageRef string `json:"message_ref"`
}

// PanelBindingResponse represents a persisted setup panel.
type PanelBindingResponse struct {
	ChannelRef string `json:"channel_ref"`
	MessageRef string `json:"message_ref"`
}

// UpsertStaffRequest payload.
type UpsertStaffRequest struct {
	StaffID     string           `json:"staff_id"`
	DisplayName string           `json:"display_name"`
	Password    string           `json:"password"`
	Role        domain.StaffRole `json:"role"`
	Active      *bool            `json:"active"`
}

// StaffResponse represents a staff member without credentials.
type StaffResponse struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Role        domain.StaffRole `json:"role"`
	Active      bool             `json:"active"`
}
