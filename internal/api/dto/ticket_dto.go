package dto

import (
	"time"

	"github.com/lunarcity/ticketdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	OwnerID  string `json:"owner_id"`
	Category string `json:"category"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Reason string `json:"reason"`
}

// ActivityRequest payload.
type ActivityRequest struct {
	ActorID string `json:"actor_id"`
}

// ParticipantRequest payload.
type ParticipantRequest struct {
	UserID string `json:"user_id"`
}

// TicketResponse represents a ticket on the wire.
type TicketResponse struct {
	ID                string             `json:"id"`
	Category          string             `json:"category"`
	OwnerID           string             `json:"owner_id"`
	ChannelRef        string             `json:"channel_ref"`
	ClaimedBy         *string            `json:"claimed_by"`
	State             domain.TicketState `json:"state"`
	Participants      []string           `json:"participants"`
	CreatedAt         time.Time          `json:"created_at"`
	LastActivityAt    time.Time          `json:"last_activity_at"`
	ClosedAt          *time.Time         `json:"closed_at,omitempty"`
	ArchivedAt        *time.Time         `json:"archived_at,omitempty"`
	ClosedBy          *string            `json:"closed_by,omitempty"`
	CloseReason       *string            `json:"close_reason,omitempty"`
	TranscriptRef     *string            `json:"transcript_ref,omitempty"`
	TranscriptPending bool               `json:"transcript_pending"`
}

// NewTicketResponse maps a domain ticket onto the wire shape.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	participants := ticket.Participants
	if participants == nil {
		participants = []string{}
	}
	return TicketResponse{
		ID:                ticket.ID,
		Category:          ticket.Category,
		OwnerID:           ticket.OwnerID,
		ChannelRef:        ticket.ChannelRef,
		ClaimedBy:         ticket.ClaimedBy,
		State:             ticket.State,
		Participants:      participants,
		CreatedAt:         ticket.CreatedAt,
		LastActivityAt:    ticket.LastActivityAt,
		ClosedAt:          ticket.ClosedAt,
		ArchivedAt:        ticket.ArchivedAt,
		ClosedBy:          ticket.ClosedBy,
		CloseReason:       ticket.CloseReason,
		TranscriptRef:     ticket.TranscriptRef,
		TranscriptPending: ticket.TranscriptPending,
	}
}
