package service

import (
	"context"
	"time"

	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/repository"
)

// StatsService answers read-only aggregate queries over the ticket
// store. Window bounds are lower-inclusive, upper-exclusive: a ticket
// created exactly at now-7d belongs to the week window.
type StatsService struct {
	tickets repository.TicketRepository
	now     func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{tickets: tickets, now: now}
}

// Window aggregates ticket counts for the requested time frame.
func (s *StatsService) Window(ctx context.Context, window domain.StatsWindow) (*domain.TicketStats, error) {
	if !domain.ValidStatsWindow(window) {
		return nil, &domain.ConfigError{Field: "stats window", Value: string(window)}
	}

	until := s.now()
	var since time.Time
	switch window {
	case domain.StatsWindowDay:
		since = until.Add(-24 * time.Hour)
	case domain.StatsWindowWeek:
		since = until.Add(-7 * 24 * time.Hour)
	case domain.StatsWindowMonth:
		since = until.Add(-30 * 24 * time.Hour)
	case domain.StatsWindowAll:
		// zero since covers everything
	}

	stats, err := s.tickets.AggregateBetween(ctx, since, until)
	if err != nil {
		return nil, &domain.StoreError{Op: "aggregate stats", Err: err}
	}
	stats.Window = window
	return stats, nil
}

// User aggregates per-user counts, both as requester and claimant.
func (s *StatsService) User(ctx context.Context, userID string) (*domain.UserTicketStats, error) {
	stats, err := s.tickets.UserAggregate(ctx, userID)
	if err != nil {
		return nil, &domain.StoreError{Op: "aggregate user stats", Err: err}
	}
	return stats, nil
}
