package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	StaffID  string `json:"staff_id"`
	Password string `json:"password"`
}

// StaffLoginResponse carries the issued token.
type StaffLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
