package dto

import "github.com/lunarcity/ticketdesk/internal/domain"

// ClaimantCountResponse names a claimant and their claim count.
type ClaimantCountResponse struct {
	StaffID string `json:"staff_id"`
	Claims  int64  `json:"claims"`
}

// TicketStatsResponse aggregates counts for a time window.
type TicketStatsResponse struct {
	Window       domain.StatsWindow      `json:"window"`
	Opened       int64                   `json:"opened"`
	Closed       int64                   `json:"closed"`
	Claimed      int64                   `json:"claimed"`
	TopClaimants []ClaimantCountResponse `json:"top_claimants"`
}

// NewTicketStatsResponse maps window stats onto the wire shape.
func NewTicketStatsResponse(stats *domain.TicketStats) TicketStatsResponse {
	claimants := make([]ClaimantCountResponse, 0, len(stats.TopClaimants))
	for _, claimant := range stats.TopClaimants {
		claimants = append(claimants, ClaimantCountResponse{
			StaffID: claimant.StaffID,
			Claims:  claimant.Claims,
		})
	}
	return TicketStatsResponse{
		Window:       stats.Window,
		Opened:       stats.Opened,
		Closed:       stats.Closed,
		Claimed:      stats.Claimed,
		TopClaimants: claimants,
	}
}

// UserTicketStatsResponse aggregates per-user counts.
type UserTicketStatsResponse struct {
	UserID          string  `json:"user_id"`
	Created         int64   `json:"created"`
	CreatedClosed   int64   `json:"created_closed"`
	CreatedActive   int64   `json:"created_active"`
	Claimed         int64   `json:"claimed"`
	AvgHandleHours  float64 `json:"avg_handle_hours"`
	HasStaffHistory bool    `json:"has_staff_history"`
}

// NewUserTicketStatsResponse maps user stats onto the wire shape.
func NewUserTicketStatsResponse(stats *domain.UserTicketStats) UserTicketStatsResponse {
	return UserTicketStatsResponse{
		UserID:          stats.UserID,
		Created:         stats.Created,
		CreatedClosed:   stats.CreatedClosed,
		CreatedActive:   stats.CreatedActive,
		Claimed:         stats.Claimed,
		AvgHandleHours:  stats.AvgHandleHours,
		HasStaffHistory: stats.HasStaffHistory,
	}
}
