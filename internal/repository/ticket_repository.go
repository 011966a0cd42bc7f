package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunarcity/ticketdesk/internal/domain"
)

// ErrActiveTicketExists is returned by Create when the partial unique
// index on (owner_id, category) rejects a second active ticket.
var ErrActiveTicketExists = errors.New("active ticket exists for owner and category")

// TicketRepository encapsulates ticket persistence. Every state
// transition method is a single conditional update: the store asserts
// the expected precondition and reports whether the write applied, so
// concurrent claim/close attempts serialize at the store.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	SetChannelRef(ctx context.Context, id, channelRef string) error
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetActiveByOwner(ctx context.Context, ownerID, category string) (*domain.Ticket, error)
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
	ListTranscriptPending(ctx context.Context) ([]domain.Ticket, error)
	ListClosedReadyToArchive(ctx context.Context) ([]domain.Ticket, error)
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)

	ClaimIfOpen(ctx context.Context, id, staffID string, now time.Time) (bool, error)
	TouchIfActive(ctx context.Context, id string, now time.Time) (bool, error)
	CloseIfActive(ctx context.Context, id, closedBy, reason string, now time.Time) (bool, error)
	ArchiveIfClosed(ctx context.Context, id string, now time.Time) (bool, error)
	PurgeIfArchivedBefore(ctx context.Context, id string, cutoff time.Time) (bool, error)

	AddParticipant(ctx context.Context, id, userID string) error
	RemoveParticipant(ctx context.Context, id, userID string) error
	SetTranscript(ctx context.Context, id, url string) error

	AggregateBetween(ctx context.Context, since, until time.Time) (*domain.TicketStats, error)
	UserAggregate(ctx context.Context, userID string) (*domain.UserTicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, category, owner_id, channel_ref, claimed_by, state, participants,
        created_at, last_activity_at, closed_at, archived_at, closed_by, close_reason,
        transcript_ref, transcript_pending`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, category, owner_id, channel_ref, state, participants, created_at, last_activity_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Category,
		ticket.OwnerID,
		ticket.ChannelRef,
		ticket.State,
		ticket.Participants,
		ticket.CreatedAt,
		ticket.LastActivityAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrActiveTicketExists
		}
		return err
	}
	return nil
}

func (r *ticketRepository) SetChannelRef(ctx context.Context, id, channelRef string) error {
	const query = `UPDATE tickets SET channel_ref=$1 WHERE id=$2 AND channel_ref=''`
	cmd, err := r.pool.Exec(ctx, query, channelRef, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetActiveByOwner(ctx context.Context, ownerID, category string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE owner_id=$1 AND category=$2 AND state IN ('OPEN','CLAIMED')`
	return r.fetchSingle(ctx, query, ownerID, category)
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE state IN ('OPEN','CLAIMED') ORDER BY created_at`
	return r.fetchMany(ctx, query)
}

func (r *ticketRepository) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE state IN ('OPEN','CLAIMED') AND last_activity_at < $1 ORDER BY last_activity_at`
	return r.fetchMany(ctx, query, cutoff)
}

func (r *ticketRepository) ListTranscriptPending(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE state='CLOSED' AND transcript_pending ORDER BY closed_at`
	return r.fetchMany(ctx, query)
}

func (r *ticketRepository) ListClosedReadyToArchive(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE state='CLOSED' AND NOT transcript_pending ORDER BY closed_at`
	return r.fetchMany(ctx, query)
}

func (r *ticketRepository) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE state='ARCHIVED' AND archived_at < $1 ORDER BY archived_at`
	return r.fetchMany(ctx, query, cutoff)
}

func (r *ticketRepository) ClaimIfOpen(ctx context.Context, id, staffID string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET state='CLAIMED', claimed_by=$1, last_activity_at=$2
        WHERE id=$3 AND state='OPEN'`
	cmd, err := r.pool.Exec(ctx, query, staffID, now, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) TouchIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET last_activity_at=$1
        WHERE id=$2 AND state IN ('OPEN','CLAIMED')`
	cmd, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) CloseIfActive(ctx context.Context, id, closedBy, reason string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET state='CLOSED', closed_at=$1, closed_by=$2, close_reason=$3, transcript_pending=TRUE
        WHERE id=$4 AND state IN ('OPEN','CLAIMED')`
	cmd, err := r.pool.Exec(ctx, query, now, closedBy, reason, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ArchiveIfClosed(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET state='ARCHIVED', archived_at=$1
        WHERE id=$2 AND state='CLOSED'`
	cmd, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) PurgeIfArchivedBefore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	const query = `
        DELETE FROM tickets WHERE id=$1 AND state='ARCHIVED' AND archived_at < $2`
	cmd, err := r.pool.Exec(ctx, query, id, cutoff)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) AddParticipant(ctx context.Context, id, userID string) error {
	const query = `
        UPDATE tickets SET participants = array_append(participants, $1)
        WHERE id=$2 AND NOT ($1 = ANY(participants))`
	cmd, err := r.pool.Exec(ctx, query, userID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) RemoveParticipant(ctx context.Context, id, userID string) error {
	const query = `
        UPDATE tickets SET participants = array_remove(participants, $1)
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, userID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) SetTranscript(ctx context.Context, id, url string) error {
	const query = `
        UPDATE tickets SET transcript_ref=$1, transcript_pending=FALSE WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, url, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) AggregateBetween(ctx context.Context, since, until time.Time) (*domain.TicketStats, error) {
	stats := &domain.TicketStats{}
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
            COUNT(*) FILTER (WHERE closed_at IS NOT NULL AND closed_at >= $1 AND closed_at < $2),
            COUNT(*) FILTER (WHERE claimed_by IS NOT NULL AND created_at >= $1 AND created_at < $2)
        FROM tickets`
	if err := r.pool.QueryRow(ctx, query, since, until).Scan(&stats.Opened, &stats.Closed, &stats.Claimed); err != nil {
		return nil, err
	}

	const claimants = `
        SELECT claimed_by, COUNT(*) AS claims FROM tickets
        WHERE claimed_by IS NOT NULL AND created_at >= $1 AND created_at < $2
        GROUP BY claimed_by ORDER BY claims DESC LIMIT 5`
	rows, err := r.pool.Query(ctx, claimants, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry domain.ClaimantCount
		if err := rows.Scan(&entry.StaffID, &entry.Claims); err != nil {
			return nil, err
		}
		stats.TopClaimants = append(stats.TopClaimants, entry)
	}
	return stats, rows.Err()
}

func (r *ticketRepository) UserAggregate(ctx context.Context, userID string) (*domain.UserTicketStats, error) {
	stats := &domain.UserTicketStats{UserID: userID}
	const created = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE state IN ('CLOSED','ARCHIVED')),
               COUNT(*) FILTER (WHERE state IN ('OPEN','CLAIMED'))
        FROM tickets WHERE owner_id=$1`
	if err := r.pool.QueryRow(ctx, created, userID).Scan(&stats.Created, &stats.CreatedClosed, &stats.CreatedActive); err != nil {
		return nil, err
	}

	const claimed = `
        SELECT COUNT(*),
               COALESCE(AVG(EXTRACT(EPOCH FROM (last_activity_at - created_at))/3600), 0)
        FROM tickets WHERE claimed_by=$1 AND state IN ('CLOSED','ARCHIVED')`
	if err := r.pool.QueryRow(ctx, claimed, userID).Scan(&stats.Claimed, &stats.AvgHandleHours); err != nil {
		return nil, err
	}
	stats.HasStaffHistory = stats.Claimed > 0
	return stats, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.Category,
		&ticket.OwnerID,
		&ticket.ChannelRef,
		&ticket.ClaimedBy,
		&ticket.State,
		&ticket.Participants,
		&ticket.CreatedAt,
		&ticket.LastActivityAt,
		&ticket.ClosedAt,
		&ticket.ArchivedAt,
		&ticket.ClosedBy,
		&ticket.CloseReason,
		&ticket.TranscriptRef,
		&ticket.TranscriptPending,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Category,
			&ticket.OwnerID,
			&ticket.ChannelRef,
			&ticket.ClaimedBy,
			&ticket.State,
			&ticket.Participants,
			&ticket.CreatedAt,
			&ticket.LastActivityAt,
			&ticket.ClosedAt,
			&ticket.ArchivedAt,
			&ticket.ClosedBy,
			&ticket.CloseReason,
			&ticket.TranscriptRef,
			&ticket.TranscriptPending,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
