package events

import (
	"time"

	"github.com/lunarcity/ticketdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketClaimed      EventType = "ticket_claimed"
	EventTicketClosed       EventType = "ticket_closed"
	EventTicketArchived     EventType = "ticket_archived"
	EventTicketPurged       EventType = "ticket_purged"
	EventTranscriptReady    EventType = "transcript_ready"
	EventTranscriptFailed   EventType = "transcript_failed"
	EventParticipantAdded   EventType = "participant_added"
	EventParticipantRemoved EventType = "participant_removed"
)

// ActorType distinguishes who drove a transition.
type ActorType string

const (
	ActorUser  ActorType = "USER"
	ActorStaff ActorType = "STAFF"
	ActorSweep ActorType = "SWEEP"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// Event represents a lifecycle event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category   string `json:"category"`
	OwnerID    string `json:"owner_id"`
	ChannelRef string `json:"channel_ref"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	StaffID string `json:"staff_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ClosedBy string             `json:"closed_by"`
	Reason   string             `json:"reason"`
	OldState domain.TicketState `json:"old_state"`
}

// TranscriptPayload payload for transcript outcomes.
type TranscriptPayload struct {
	TranscriptRef string `json:"transcript_ref,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ParticipantPayload payload for participant changes.
type ParticipantPayload struct {
	UserID string `json:"user_id"`
}
