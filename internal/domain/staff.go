package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "AGENT"
	StaffRoleTeamLead StaffRole = "TEAM_LEAD"
	StaffRoleAdmin    StaffRole = "ADMIN"
)

// ValidStaffRole reports whether the role belongs to the closed set.
func ValidStaffRole(role StaffRole) bool {
	switch role {
	case StaffRoleAgent, StaffRoleTeamLead, StaffRoleAdmin:
		return true
	}
	return false
}

// StaffMember models a support agent or administrator.
type StaffMember struct {
	ID           string
	DisplayName  string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
}
