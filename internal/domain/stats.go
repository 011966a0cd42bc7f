package domain

// StatsWindow selects the aggregation time frame for ticket statistics.
type StatsWindow string

const (
	StatsWindowDay   StatsWindow = "day"
	StatsWindowWeek  StatsWindow = "week"
	StatsWindowMonth StatsWindow = "month"
	StatsWindowAll   StatsWindow = "all"
)

// ValidStatsWindow reports whether the window belongs to the closed set.
func ValidStatsWindow(w StatsWindow) bool {
	switch w {
	case StatsWindowDay, StatsWindowWeek, StatsWindowMonth, StatsWindowAll:
		return true
	}
	return false
}

// ClaimantCount pairs a staff id with their claim count.
type ClaimantCount struct {
	StaffID string
	Claims  int64
}

// TicketStats aggregates lifecycle counts over a time window. Derived on
// demand from the ticket store, never persisted as mutable state.
type TicketStats struct {
	Window       StatsWindow
	Opened       int64
	Closed       int64
	Claimed      int64
	TopClaimants []ClaimantCount
}

// UserTicketStats aggregates counts for a single user, both as requester
// and (when applicable) as claiming staff.
type UserTicketStats struct {
	UserID          string
	Created         int64
	CreatedClosed   int64
	CreatedActive   int64
	Claimed         int64
	AvgHandleHours  float64
	HasStaffHistory bool
}
