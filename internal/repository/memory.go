package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lunarcity/ticketdesk/internal/domain"
)

// MemoryTicketRepository is a mutex-guarded TicketRepository. It backs
// DSN-less runs and tests, and honors the same conditional-update
// contract as the Postgres implementation: each transition checks its
// precondition and writes under one lock acquisition.
type MemoryTicketRepository struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketRepository creates an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.OwnerID == ticket.OwnerID && t.Category == ticket.Category && t.State.Active() {
			return ErrActiveTicketExists
		}
	}
	clone := cloneTicket(ticket)
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *MemoryTicketRepository) SetChannelRef(ctx context.Context, id, channelRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.ChannelRef != "" {
		return domain.ErrNotFound
	}
	t.ChannelRef = channelRef
	return nil
}

func (r *MemoryTicketRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, id)
	return nil
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneTicket(t)
	return &clone, nil
}

func (r *MemoryTicketRepository) GetActiveByOwner(ctx context.Context, ownerID, category string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.OwnerID == ownerID && t.Category == category && t.State.Active() {
			clone := cloneTicket(t)
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryTicketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool { return t.State.Active() })
}

func (r *MemoryTicketRepository) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool {
		return t.State.Active() && t.LastActivityAt.Before(cutoff)
	})
}

func (r *MemoryTicketRepository) ListTranscriptPending(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool {
		return t.State == domain.TicketStateClosed && t.TranscriptPending
	})
}

func (r *MemoryTicketRepository) ListClosedReadyToArchive(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool {
		return t.State == domain.TicketStateClosed && !t.TranscriptPending
	})
}

func (r *MemoryTicketRepository) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	return r.list(func(t *domain.Ticket) bool {
		return t.State == domain.TicketStateArchived && t.ArchivedAt != nil && t.ArchivedAt.Before(cutoff)
	})
}

func (r *MemoryTicketRepository) ClaimIfOpen(ctx context.Context, id, staffID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.State != domain.TicketStateOpen {
		return false, nil
	}
	claimant := staffID
	t.ClaimedBy = &claimant
	t.State = domain.TicketStateClaimed
	t.LastActivityAt = now
	return true, nil
}

func (r *MemoryTicketRepository) TouchIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || !t.State.Active() {
		return false, nil
	}
	t.LastActivityAt = now
	return true, nil
}

func (r *MemoryTicketRepository) CloseIfActive(ctx context.Context, id, closedBy, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || !t.State.Active() {
		return false, nil
	}
	closedAt := now
	closer := closedBy
	why := reason
	t.State = domain.TicketStateClosed
	t.ClosedAt = &closedAt
	t.ClosedBy = &closer
	t.CloseReason = &why
	t.TranscriptPending = true
	return true, nil
}

func (r *MemoryTicketRepository) ArchiveIfClosed(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.State != domain.TicketStateClosed {
		return false, nil
	}
	archivedAt := now
	t.State = domain.TicketStateArchived
	t.ArchivedAt = &archivedAt
	return true, nil
}

func (r *MemoryTicketRepository) PurgeIfArchivedBefore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.State != domain.TicketStateArchived || t.ArchivedAt == nil || !t.ArchivedAt.Before(cutoff) {
		return false, nil
	}
	delete(r.tickets, id)
	return true, nil
}

func (r *MemoryTicketRepository) AddParticipant(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, p := range t.Participants {
		if p == userID {
			return nil
		}
	}
	t.Participants = append(t.Participants, userID)
	return nil
}

func (r *MemoryTicketRepository) RemoveParticipant(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	kept := t.Participants[:0]
	for _, p := range t.Participants {
		if p != userID {
			kept = append(kept, p)
		}
	}
	t.Participants = kept
	return nil
}

func (r *MemoryTicketRepository) SetTranscript(ctx context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	link := url
	t.TranscriptRef = &link
	t.TranscriptPending = false
	return nil
}

func (r *MemoryTicketRepository) AggregateBetween(ctx context.Context, since, until time.Time) (*domain.TicketStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.TicketStats{}
	claims := make(map[string]int64)
	for _, t := range r.tickets {
		inWindow := !t.CreatedAt.Before(since) && t.CreatedAt.Before(until)
		if inWindow {
			stats.Opened++
			if t.ClaimedBy != nil {
				stats.Claimed++
				claims[*t.ClaimedBy]++
			}
		}
		if t.ClosedAt != nil && !t.ClosedAt.Before(since) && t.ClosedAt.Before(until) {
			stats.Closed++
		}
	}
	for staffID, count := range claims {
		stats.TopClaimants = append(stats.TopClaimants, domain.ClaimantCount{StaffID: staffID, Claims: count})
	}
	sort.Slice(stats.TopClaimants, func(i, j int) bool {
		if stats.TopClaimants[i].Claims != stats.TopClaimants[j].Claims {
			return stats.TopClaimants[i].Claims > stats.TopClaimants[j].Claims
		}
		return stats.TopClaimants[i].StaffID < stats.TopClaimants[j].StaffID
	})
	if len(stats.TopClaimants) > 5 {
		stats.TopClaimants = stats.TopClaimants[:5]
	}
	return stats, nil
}

func (r *MemoryTicketRepository) UserAggregate(ctx context.Context, userID string) (*domain.UserTicketStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.UserTicketStats{UserID: userID}
	var handleHours float64
	for _, t := range r.tickets {
		if t.OwnerID == userID {
			stats.Created++
			if t.State.Active() {
				stats.CreatedActive++
			} else {
				stats.CreatedClosed++
			}
		}
		if t.ClaimedBy != nil && *t.ClaimedBy == userID && !t.State.Active() {
			stats.Claimed++
			handleHours += t.LastActivityAt.Sub(t.CreatedAt).Hours()
		}
	}
	if stats.Claimed > 0 {
		stats.AvgHandleHours = handleHours / float64(stats.Claimed)
		stats.HasStaffHistory = true
	}
	return stats, nil
}

func (r *MemoryTicketRepository) list(keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		if keep(t) {
			result = append(result, cloneTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func cloneTicket(t *domain.Ticket) domain.Ticket {
	clone := *t
	clone.Participants = append([]string(nil), t.Participants...)
	return clone
}

// MemoryPanelRepository is the in-memory PanelRepository counterpart.
type MemoryPanelRepository struct {
	mu       sync.Mutex
	bindings map[string]PanelBinding
}

// NewMemoryPanelRepository creates an empty store.
func NewMemoryPanelRepository() *MemoryPanelRepository {
	return &MemoryPanelRepository{bindings: make(map[string]PanelBinding)}
}

func (r *MemoryPanelRepository) Upsert(ctx context.Context, binding PanelBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[binding.ChannelRef] = binding
	return nil
}

func (r *MemoryPanelRepository) List(ctx context.Context) ([]PanelBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]PanelBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ChannelRef < result[j].ChannelRef })
	return result, nil
}

func (r *MemoryPanelRepository) Delete(ctx context.Context, channelRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, channelRef)
	return nil
}

// MemoryStaffRepository is the in-memory StaffRepository counterpart.
type MemoryStaffRepository struct {
	mu    sync.Mutex
	staff map[string]domain.StaffMember
}

// NewMemoryStaffRepository creates an empty store.
func NewMemoryStaffRepository() *MemoryStaffRepository {
	return &MemoryStaffRepository{staff: make(map[string]domain.StaffMember)}
}

func (r *MemoryStaffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.staff[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &member, nil
}

func (r *MemoryStaffRepository) List(ctx context.Context) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.StaffMember, 0, len(r.staff))
	for _, member := range r.staff {
		result = append(result, member)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryStaffRepository) Upsert(ctx context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[staff.ID] = *staff
	return nil
}
