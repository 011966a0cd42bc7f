package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrChannelNotFound indicates an operation on an unknown channel ref.
var ErrChannelNotFound = errors.New("channel not found")

// InMemoryChannelService is a process-local ChannelService and
// ControlBinder. It backs local development runs and tests; a real
// deployment swaps in a chat platform adapter.
type InMemoryChannelService struct {
	mu       sync.Mutex
	channels map[string]*memChannel
}

type memChannel struct {
	ownerID      string
	category     string
	participants map[string]struct{}
	history      []MessageRecord
	bindings     int
}

// NewInMemoryChannelService creates an empty channel service.
func NewInMemoryChannelService() *InMemoryChannelService {
	return &InMemoryChannelService{channels: make(map[string]*memChannel)}
}

// CreateChannel allocates a fresh channel ref, never reusing one.
func (s *InMemoryChannelService) CreateChannel(ctx context.Context, ownerID, category string) (string, error) {
	ref := "chan-" + strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ref] = &memChannel{
		ownerID:      ownerID,
		category:     category,
		participants: map[string]struct{}{ownerID: {}},
	}
	return ref, nil
}

// DeleteChannel removes the channel. Deleting an already removed
// channel is a no-op so purge retries stay idempotent.
func (s *InMemoryChannelService) DeleteChannel(ctx context.Context, channelRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelRef)
	return nil
}

// SetParticipants grants and revokes channel visibility.
func (s *InMemoryChannelService) SetParticipants(ctx context.Context, channelRef string, add, remove []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelRef]
	if !ok {
		return ErrChannelNotFound
	}
	for _, id := range add {
		ch.participants[id] = struct{}{}
	}
	for _, id := range remove {
		delete(ch.participants, id)
	}
	return nil
}

// FetchMessageHistory returns a restartable iterator over a snapshot of
// the channel history.
func (s *InMemoryChannelService) FetchMessageHistory(ctx context.Context, channelRef string) (HistoryIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelRef]
	if !ok {
		return nil, ErrChannelNotFound
	}
	records := make([]MessageRecord, len(ch.history))
	copy(records, ch.history)
	return &sliceIterator{records: records, pos: -1}, nil
}

// AppendMessage records a message in the channel history. Exercised by
// the activity adapter in local runs and by tests.
func (s *InMemoryChannelService) AppendMessage(channelRef string, record MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelRef]
	if !ok {
		return ErrChannelNotFound
	}
	ch.history = append(ch.history, record)
	return nil
}

// BindTicketControls is idempotent: rebinding an already bound channel
// replaces the binding instead of duplicating it.
func (s *InMemoryChannelService) BindTicketControls(ctx context.Context, channelRef string, staffControls bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelRef]
	if !ok {
		return ErrChannelNotFound
	}
	ch.bindings = 1
	return nil
}

// BindSetupPanel rebinds a persisted setup panel.
func (s *InMemoryChannelService) BindSetupPanel(ctx context.Context, channelRef, messageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelRef]; !ok {
		return &ErrBindingGone{ChannelRef: channelRef}
	}
	return nil
}

// HasChannel reports whether the ref is live.
func (s *InMemoryChannelService) HasChannel(channelRef string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channelRef]
	return ok
}

// BindingCount returns the number of control bindings on a channel.
func (s *InMemoryChannelService) BindingCount(channelRef string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelRef]
	if !ok {
		return 0
	}
	return ch.bindings
}

type sliceIterator struct {
	records []MessageRecord
	pos     int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.records) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Record() MessageRecord {
	return it.records[it.pos]
}

func (it *sliceIterator) Err() error { return nil }

func (it *sliceIterator) Restart() { it.pos = -1 }

// InMemoryPastePublisher stores documents in memory and hands back
// pseudo URLs. Stands in for the paste-hosting adapter, which is out of
// scope for the core.
type InMemoryPastePublisher struct {
	mu   sync.Mutex
	docs map[string]string
}

// NewInMemoryPastePublisher creates an empty publisher.
func NewInMemoryPastePublisher() *InMemoryPastePublisher {
	return &InMemoryPastePublisher{docs: make(map[string]string)}
}

// Publish stores the document and returns its link.
func (p *InMemoryPastePublisher) Publish(ctx context.Context, document string) (string, error) {
	id := strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	url := fmt.Sprintf("memory://paste/%s", id)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[url] = document
	return url, nil
}

// Document retrieves a stored document by link.
func (p *InMemoryPastePublisher) Document(url string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.docs[url]
	return doc, ok
}
