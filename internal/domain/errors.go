package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced ticket does not exist.
var ErrNotFound = errors.New("ticket not found")

// ErrTranscriptUnavailable indicates transcript generation or publishing
// failed after all retries. It is recorded on the ticket, never fatal.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

// Participant guard errors for channel visibility changes.
var (
	ErrParticipantExists  = errors.New("user already has access to this ticket")
	ErrParticipantMissing = errors.New("user does not have access to this ticket")
	ErrOwnerParticipant   = errors.New("the ticket owner cannot be removed")
)

// DuplicateActiveTicketError rejects a create while an active ticket
// already exists for the same (owner, category).
type DuplicateActiveTicketError struct {
	Existing *Ticket
}

func (e *DuplicateActiveTicketError) Error() string {
	return fmt.Sprintf("owner %s already has active ticket %s in category %s",
		e.Existing.OwnerID, e.Existing.ID, e.Existing.Category)
}

// InvalidStateError rejects a transition the current state does not allow.
type InvalidStateError struct {
	TicketID  string
	State     TicketState
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ticket %s: cannot %s while %s", e.TicketID, e.Attempted, e.State)
}

// AlreadyClaimedError rejects a claim on a ticket that has a claimant.
type AlreadyClaimedError struct {
	TicketID  string
	ClaimedBy string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("ticket %s already claimed by %s", e.TicketID, e.ClaimedBy)
}

// PlatformError wraps a failed or timed-out platform collaborator call.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// StoreError wraps a failed or timed-out persistence call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConfigError rejects an unknown category, role, or stats window at
// configuration or request validation time.
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}
