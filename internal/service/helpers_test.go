package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/platform"
)

// fakeClock is a mutable clock for retention and window tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubChannelService wraps the in-memory channel service with a
// switchable create failure.
type stubChannelService struct {
	*platform.InMemoryChannelService
	mu         sync.Mutex
	failCreate bool
}

func newStubChannelService() *stubChannelService {
	return &stubChannelService{InMemoryChannelService: platform.NewInMemoryChannelService()}
}

func (s *stubChannelService) setFailCreate(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = fail
}

func (s *stubChannelService) CreateChannel(ctx context.Context, ownerID, category string) (string, error) {
	s.mu.Lock()
	fail := s.failCreate
	s.mu.Unlock()
	if fail {
		return "", errors.New("platform unavailable")
	}
	return s.InMemoryChannelService.CreateChannel(ctx, ownerID, category)
}

// flakyPublisher fails a fixed number of Publish calls before handing
// off to the real in-memory publisher.
type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	inner    *platform.InMemoryPastePublisher
}

func newFlakyPublisher(failures int) *flakyPublisher {
	return &flakyPublisher{failures: failures, inner: platform.NewInMemoryPastePublisher()}
}

func (p *flakyPublisher) Publish(ctx context.Context, document string) (string, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	if call <= p.failures {
		return "", errors.New("paste host unavailable")
	}
	return p.inner.Publish(ctx, document)
}

func (p *flakyPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testTicketsConfig() config.TicketsConfig {
	return config.TicketsConfig{
		Categories: map[string]config.Category{
			"reportBug":    {ID: "reportBug", Name: "Report Bug"},
			"reportPlayer": {ID: "reportPlayer", Name: "Report a Player"},
		},
		InactivityTimeout: 72 * time.Hour,
		ArchiveRetention:  240 * time.Hour,
	}
}

func testTranscriptConfig() config.TranscriptConfig {
	return config.TranscriptConfig{
		Timeout:         2 * time.Second,
		PublishAttempts: 3,
		PublishBackoff:  5 * time.Millisecond,
	}
}
