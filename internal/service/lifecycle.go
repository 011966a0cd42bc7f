package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/events"
	"github.com/lunarcity/ticketdesk/internal/observability"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
)

// platformCallTimeout bounds every chat platform call so no transition
// blocks indefinitely.
const platformCallTimeout = 10 * time.Second

// Origin distinguishes user-originated calls, which surface invalid
// transitions, from sweep-originated calls, which treat a lost race as
// the correct up-to-date outcome.
type Origin string

const (
	OriginUser  Origin = "user"
	OriginSweep Origin = "sweep"
)

// LifecycleEngine is the ticket state machine. All transitions go
// through the store's conditional updates; the first writer wins and
// the loser observes the current state.
type LifecycleEngine struct {
	cfg         config.TicketsConfig
	tickets     repository.TicketRepository
	channels    platform.ChannelService
	transcripts *TranscriptService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	Channels    platform.ChannelService
	Transcripts *TranscriptService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
}

// NewLifecycleEngine constructs the engine.
func NewLifecycleEngine(cfg config.TicketsConfig, deps LifecycleDependencies) *LifecycleEngine {
	engine := &LifecycleEngine{
		cfg:         cfg,
		tickets:     deps.TicketRepo,
		channels:    deps.Channels,
		transcripts: deps.Transcripts,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		now:         deps.Now,
	}
	if engine.now == nil {
		engine.now = time.Now
	}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}
	return engine
}

// Create validates the category, enforces the one-active-ticket rule,
// provisions the backing channel and persists the ticket. A failed
// channel creation rolls back the store reservation; there is never an
// OPEN ticket without a channel.
func (e *LifecycleEngine) Create(ctx context.Context, ownerID, category string) (*domain.Ticket, error) {
	if !e.cfg.ValidCategory(category) {
		return nil, &domain.ConfigError{Field: "category", Value: category}
	}

	if existing, err := e.tickets.GetActiveByOwner(ctx, ownerID, category); err == nil {
		return nil, &domain.DuplicateActiveTicketError{Existing: existing}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.StoreError{Op: "get active ticket", Err: err}
	}

	now := e.now()
	ticket := &domain.Ticket{
		ID:             generateTicketID(),
		Category:       category,
		OwnerID:        ownerID,
		State:          domain.TicketStateOpen,
		Participants:   []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrActiveTicketExists) {
			// Lost a create race; report the winner's ticket.
			existing, gerr := e.tickets.GetActiveByOwner(ctx, ownerID, category)
			if gerr != nil {
				existing = &domain.Ticket{OwnerID: ownerID, Category: category}
			}
			return nil, &domain.DuplicateActiveTicketError{Existing: existing}
		}
		return nil, &domain.StoreError{Op: "create ticket", Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()
	channelRef, err := e.channels.CreateChannel(cctx, ownerID, category)
	if err != nil {
		e.rollbackCreate(ticket.ID)
		return nil, &domain.PlatformError{Op: "create channel", Err: err}
	}

	if err := e.tickets.SetChannelRef(ctx, ticket.ID, channelRef); err != nil {
		e.releaseChannel(channelRef)
		e.rollbackCreate(ticket.ID)
		return nil, &domain.StoreError{Op: "set channel ref", Err: err}
	}
	ticket.ChannelRef = channelRef

	e.metrics.Inc(observability.MetricTicketsCreated)
	e.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorUser, ID: ownerID},
		Payload: events.TicketCreatedPayload{
			Category:   category,
			OwnerID:    ownerID,
			ChannelRef: channelRef,
		},
	})
	return ticket, nil
}

// Claim transitions OPEN to CLAIMED exactly once. A second claim
// observes AlreadyClaimed; a claim on a non-open ticket observes
// InvalidState.
func (e *LifecycleEngine) Claim(ctx context.Context, ticketID, staffID string) (*domain.Ticket, error) {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State == domain.TicketStateClaimed && ticket.ClaimedBy != nil {
		return nil, &domain.AlreadyClaimedError{TicketID: ticketID, ClaimedBy: *ticket.ClaimedBy}
	}
	if ticket.State != domain.TicketStateOpen {
		return nil, &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "claim"}
	}

	applied, err := e.tickets.ClaimIfOpen(ctx, ticketID, staffID, e.now())
	if err != nil {
		return nil, &domain.StoreError{Op: "claim ticket", Err: err}
	}
	if !applied {
		return nil, e.claimRaceOutcome(ctx, ticketID)
	}

	e.metrics.Inc(observability.MetricTicketsClaimed)
	e.publish(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticketID,
		Actor:    events.Actor{Type: events.ActorStaff, ID: staffID},
		Payload:  events.TicketClaimedPayload{StaffID: staffID},
	})
	return e.get(ctx, ticketID)
}

// RecordActivity refreshes last_activity_at. It is a no-op on tickets
// that are no longer active.
func (e *LifecycleEngine) RecordActivity(ctx context.Context, ticketID, actorID string) error {
	if _, err := e.tickets.TouchIfActive(ctx, ticketID, e.now()); err != nil {
		return &domain.StoreError{Op: "record activity", Err: err}
	}
	return nil
}

// Close transitions an active ticket to CLOSED and kicks off transcript
// generation asynchronously. Transcript failure flags the ticket for a
// retry and never reverses the close. In sweep mode a ticket that is
// already closed is a no-op success.
func (e *LifecycleEngine) Close(ctx context.Context, ticketID, closerID, reason string, origin Origin) (*domain.Ticket, error) {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.State.Active() {
		if origin == OriginSweep {
			return ticket, nil
		}
		return nil, &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "close"}
	}
	oldState := ticket.State

	applied, err := e.tickets.CloseIfActive(ctx, ticketID, closerID, reason, e.now())
	if err != nil {
		return nil, &domain.StoreError{Op: "close ticket", Err: err}
	}
	if !applied {
		// A concurrent close won; one CLOSED transition, one transcript.
		current, gerr := e.get(ctx, ticketID)
		if gerr != nil {
			return nil, gerr
		}
		if origin == OriginSweep {
			return current, nil
		}
		return nil, &domain.InvalidStateError{TicketID: ticketID, State: current.State, Attempted: "close"}
	}

	e.metrics.Inc(observability.MetricTicketsClosed)
	e.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticketID,
		Actor:    closeActor(origin, closerID),
		Payload:  events.TicketClosedPayload{ClosedBy: closerID, Reason: reason, OldState: oldState},
	})

	closed, err := e.get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	e.transcripts.Capture(closed)
	return closed, nil
}

// Archive transitions CLOSED to ARCHIVED and starts the retention
// clock. Sweep mode tolerates an already archived ticket.
func (e *LifecycleEngine) Archive(ctx context.Context, ticketID string, origin Origin) (*domain.Ticket, error) {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.State == domain.TicketStateArchived && origin == OriginSweep {
		return ticket, nil
	}
	if ticket.State != domain.TicketStateClosed {
		return nil, &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "archive"}
	}

	applied, err := e.tickets.ArchiveIfClosed(ctx, ticketID, e.now())
	if err != nil {
		return nil, &domain.StoreError{Op: "archive ticket", Err: err}
	}
	if !applied {
		current, gerr := e.get(ctx, ticketID)
		if gerr != nil {
			return nil, gerr
		}
		if origin == OriginSweep {
			return current, nil
		}
		return nil, &domain.InvalidStateError{TicketID: ticketID, State: current.State, Attempted: "archive"}
	}

	e.metrics.Inc(observability.MetricTicketsArchived)
	e.publish(ctx, events.Event{
		Type:     events.EventTicketArchived,
		TicketID: ticketID,
		Actor:    closeActor(origin, ""),
	})
	return e.get(ctx, ticketID)
}

// Purge releases the backing channel and permanently deletes the record
// once the retention window has elapsed. A ticket one second short of
// the window is never purged.
func (e *LifecycleEngine) Purge(ctx context.Context, ticketID string, origin Origin) error {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		if origin == OriginSweep && errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if ticket.State != domain.TicketStateArchived {
		return &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "purge"}
	}
	cutoff := e.now().Add(-e.cfg.ArchiveRetention)
	if ticket.ArchivedAt == nil || !ticket.ArchivedAt.Before(cutoff) {
		if origin == OriginSweep {
			return nil
		}
		return &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "purge before retention elapsed"}
	}

	cctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()
	if err := e.channels.DeleteChannel(cctx, ticket.ChannelRef); err != nil {
		// Keep the record; the next sweep retries channel deletion.
		return &domain.PlatformError{Op: "delete channel", Err: err}
	}

	applied, err := e.tickets.PurgeIfArchivedBefore(ctx, ticketID, cutoff)
	if err != nil {
		return &domain.StoreError{Op: "purge ticket", Err: err}
	}
	if applied {
		e.metrics.Inc(observability.MetricTicketsPurged)
		e.publish(ctx, events.Event{
			Type:     events.EventTicketPurged,
			TicketID: ticketID,
			Actor:    closeActor(origin, ""),
		})
	}
	return nil
}

// AddParticipant grants a user visibility on the ticket channel and
// records it as activity. No state-machine effect.
func (e *LifecycleEngine) AddParticipant(ctx context.Context, ticketID, actorID, userID string) error {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		return err
	}
	if !ticket.State.Active() {
		return &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "add participant"}
	}
	if ticket.HasParticipant(userID) {
		return domain.ErrParticipantExists
	}

	cctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()
	if err := e.channels.SetParticipants(cctx, ticket.ChannelRef, []string{userID}, nil); err != nil {
		return &domain.PlatformError{Op: "set participants", Err: err}
	}
	if err := e.tickets.AddParticipant(ctx, ticketID, userID); err != nil {
		return &domain.StoreError{Op: "add participant", Err: err}
	}
	if _, err := e.tickets.TouchIfActive(ctx, ticketID, e.now()); err != nil {
		return &domain.StoreError{Op: "record activity", Err: err}
	}

	e.publish(ctx, events.Event{
		Type:     events.EventParticipantAdded,
		TicketID: ticketID,
		Actor:    events.Actor{Type: events.ActorStaff, ID: actorID},
		Payload:  events.ParticipantPayload{UserID: userID},
	})
	return nil
}

// RemoveParticipant revokes a user's visibility. The owner can never be
// removed from their own ticket.
func (e *LifecycleEngine) RemoveParticipant(ctx context.Context, ticketID, actorID, userID string) error {
	ticket, err := e.get(ctx, ticketID)
	if err != nil {
		return err
	}
	if !ticket.State.Active() {
		return &domain.InvalidStateError{TicketID: ticketID, State: ticket.State, Attempted: "remove participant"}
	}
	if ticket.OwnerID == userID {
		return domain.ErrOwnerParticipant
	}
	if !ticket.HasParticipant(userID) {
		return domain.ErrParticipantMissing
	}

	cctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()
	if err := e.channels.SetParticipants(cctx, ticket.ChannelRef, nil, []string{userID}); err != nil {
		return &domain.PlatformError{Op: "set participants", Err: err}
	}
	if err := e.tickets.RemoveParticipant(ctx, ticketID, userID); err != nil {
		return &domain.StoreError{Op: "remove participant", Err: err}
	}
	if _, err := e.tickets.TouchIfActive(ctx, ticketID, e.now()); err != nil {
		return &domain.StoreError{Op: "record activity", Err: err}
	}

	e.publish(ctx, events.Event{
		Type:     events.EventParticipantRemoved,
		TicketID: ticketID,
		Actor:    events.Actor{Type: events.ActorStaff, ID: actorID},
		Payload:  events.ParticipantPayload{UserID: userID},
	})
	return nil
}

// Get fetches a ticket by id.
func (e *LifecycleEngine) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return e.get(ctx, ticketID)
}

func (e *LifecycleEngine) get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "get ticket", Err: err}
	}
	return ticket, nil
}

func (e *LifecycleEngine) claimRaceOutcome(ctx context.Context, ticketID string) error {
	current, err := e.get(ctx, ticketID)
	if err != nil {
		return err
	}
	if current.State == domain.TicketStateClaimed && current.ClaimedBy != nil {
		return &domain.AlreadyClaimedError{TicketID: ticketID, ClaimedBy: *current.ClaimedBy}
	}
	return &domain.InvalidStateError{TicketID: ticketID, State: current.State, Attempted: "claim"}
}

func (e *LifecycleEngine) rollbackCreate(ticketID string) {
	ctx, cancel := context.WithTimeout(context.Background(), platformCallTimeout)
	defer cancel()
	if err := e.tickets.Delete(ctx, ticketID); err != nil {
		e.logger.Error("failed to roll back ticket reservation",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (e *LifecycleEngine) releaseChannel(channelRef string) {
	ctx, cancel := context.WithTimeout(context.Background(), platformCallTimeout)
	defer cancel()
	if err := e.channels.DeleteChannel(ctx, channelRef); err != nil {
		e.logger.Error("failed to release channel",
			zap.String("channel_ref", channelRef), zap.Error(err))
	}
}

func (e *LifecycleEngine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}

func closeActor(origin Origin, actorID string) events.Actor {
	if origin == OriginSweep {
		return events.Actor{Type: events.ActorSweep}
	}
	return events.Actor{Type: events.ActorStaff, ID: actorID}
}

func generateTicketID() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
