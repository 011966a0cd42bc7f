// Package platform declares the collaborator interfaces the lifecycle
// core consumes. The chat platform and the paste host are thin I/O at
// the boundary; concrete adapters live outside the core.
package platform

import (
	"context"
	"time"
)

// MessageRecord is one message from a channel's history.
type MessageRecord struct {
	AuthorID    string
	AuthorName  string
	Body        string
	Attachments []string
	SentAt      time.Time
}

// HistoryIterator walks a channel's message history lazily, oldest
// first. Next returns false once the history is exhausted; Err reports
// the first read failure. Restart rewinds to the beginning so a failed
// transcript attempt can re-read from scratch.
type HistoryIterator interface {
	Next() bool
	Record() MessageRecord
	Err() error
	Restart()
}

// ChannelService is the chat platform's channel surface.
type ChannelService interface {
	CreateChannel(ctx context.Context, ownerID, category string) (string, error)
	DeleteChannel(ctx context.Context, channelRef string) error
	SetParticipants(ctx context.Context, channelRef string, add, remove []string) error
	FetchMessageHistory(ctx context.Context, channelRef string) (HistoryIterator, error)
}

// PastePublisher hosts a rendered transcript document and returns a
// retrievable link.
type PastePublisher interface {
	Publish(ctx context.Context, document string) (string, error)
}

// ControlBinder re-attaches interactive controls to existing platform
// messages. Used by the recovery bootstrapper after a restart.
type ControlBinder interface {
	BindTicketControls(ctx context.Context, channelRef string, staffControls bool) error
	BindSetupPanel(ctx context.Context, channelRef, messageRef string) error
}

// ErrBindingGone is returned by BindSetupPanel when the platform-side
// message no longer exists and the binding should be dropped.
type ErrBindingGone struct {
	ChannelRef string
}

func (e *ErrBindingGone) Error() string {
	return "setup panel message gone in channel " + e.ChannelRef
}
