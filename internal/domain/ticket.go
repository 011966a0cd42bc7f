package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen     TicketState = "OPEN"
	TicketStateClaimed  TicketState = "CLAIMED"
	TicketStateClosed   TicketState = "CLOSED"
	TicketStateArchived TicketState = "ARCHIVED"
)

// Active reports whether the state still accepts messages and staff actions.
func (s TicketState) Active() bool {
	return s == TicketStateOpen || s == TicketStateClaimed
}

// Ticket is the aggregate for support requests backed by a platform channel.
type Ticket struct {
	ID                string
	Category          string
	OwnerID           string
	ChannelRef        string
	ClaimedBy         *string
	State             TicketState
	Participants      []string
	CreatedAt         time.Time
	LastActivityAt    time.Time
	ClosedAt          *time.Time
	ArchivedAt        *time.Time
	ClosedBy          *string
	CloseReason       *string
	TranscriptRef     *string
	TranscriptPending bool
}

// HasParticipant reports whether the user already has channel access,
// either as owner or as an added participant.
func (t *Ticket) HasParticipant(userID string) bool {
	if t.OwnerID == userID {
		return true
	}
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
