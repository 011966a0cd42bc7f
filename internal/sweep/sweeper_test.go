package sweep_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
	"github.com/lunarcity/ticketdesk/internal/service"
	"github.com/lunarcity/ticketdesk/internal/sweep"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
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

// deniedLocker simulates another instance holding the sweep lock.
type deniedLocker struct{}

func (deniedLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}
func (deniedLocker) ReleaseLock(context.Context, string) error { return nil }

var _ = Describe("Sweeper", func() {
	var (
		ctx         context.Context
		clock       *fakeClock
		repo        *repository.MemoryTicketRepository
		channels    *platform.InMemoryChannelService
		publisher   *platform.InMemoryPastePublisher
		engine      *service.LifecycleEngine
		transcripts *service.TranscriptService
		sweeper     *sweep.Sweeper
	)

	ticketsCfg := config.TicketsConfig{
		Categories: map[string]config.Category{
			"reportBug": {ID: "reportBug", Name: "Report Bug"},
		},
		InactivityTimeout: 72 * time.Hour,
		ArchiveRetention:  240 * time.Hour,
	}

	newSweeper := func(locker sweep.Locker) *sweep.Sweeper {
		return sweep.NewSweeper(config.SweepConfig{Interval: time.Minute, LockTTL: time.Minute}, ticketsCfg,
			sweep.SweeperDependencies{
				Engine:      engine,
				Transcripts: transcripts,
				TicketRepo:  repo,
				Locker:      locker,
				Now:         clock.Now,
			})
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
		repo = repository.NewMemoryTicketRepository()
		channels = platform.NewInMemoryChannelService()
		publisher = platform.NewInMemoryPastePublisher()

		transcripts = service.NewTranscriptService(config.TranscriptConfig{
			Timeout:         2 * time.Second,
			PublishAttempts: 1,
		}, service.TranscriptDependencies{
			Channels:   channels,
			Publisher:  publisher,
			TicketRepo: repo,
			Now:        clock.Now,
		})
		engine = service.NewLifecycleEngine(ticketsCfg, service.LifecycleDependencies{
			TicketRepo:  repo,
			Channels:    channels,
			Transcripts: transcripts,
			Now:         clock.Now,
		})
		sweeper = newSweeper(nil)
	})

	It("closes tickets inactive past the timeout", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(ticketsCfg.InactivityTimeout + time.Minute)
		sweeper.RunOnce(ctx)

		Eventually(func() domain.TicketState {
			current, gerr := engine.Get(ctx, ticket.ID)
			Expect(gerr).NotTo(HaveOccurred())
			return current.State
		}, "2s", "10ms").Should(Equal(domain.TicketStateClosed))

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.CloseReason).To(HaveValue(Equal("inactivity timeout")))
	})

	It("leaves recently active tickets open", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(ticketsCfg.InactivityTimeout - time.Hour)
		sweeper.RunOnce(ctx)

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.State).To(Equal(domain.TicketStateOpen))
	})

	It("retries pending transcripts before archiving", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())

		// Mark closed with the transcript still pending, as if capture
		// had failed at close time.
		applied, err := repo.CloseIfActive(ctx, ticket.ID, "staff-1", "resolved", clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())

		sweeper.RunOnce(ctx)

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.TranscriptPending).To(BeFalse())
		Expect(current.TranscriptRef).NotTo(BeNil())
	})

	It("archives closed tickets whose transcript is recorded", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())
		applied, err := repo.CloseIfActive(ctx, ticket.ID, "staff-1", "resolved", clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())
		Expect(repo.SetTranscript(ctx, ticket.ID, "memory://paste/abc")).To(Succeed())

		sweeper.RunOnce(ctx)

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.State).To(Equal(domain.TicketStateArchived))
	})

	It("purges archived tickets past the retention window", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())
		applied, err := repo.CloseIfActive(ctx, ticket.ID, "staff-1", "resolved", clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())
		Expect(repo.SetTranscript(ctx, ticket.ID, "memory://paste/abc")).To(Succeed())
		applied, err = repo.ArchiveIfClosed(ctx, ticket.ID, clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())

		clock.Advance(ticketsCfg.ArchiveRetention + time.Minute)
		sweeper.RunOnce(ctx)

		_, err = engine.Get(ctx, ticket.ID)
		Expect(err).To(MatchError(domain.ErrNotFound))
		Expect(channels.HasChannel(ticket.ChannelRef)).To(BeFalse())
	})

	It("keeps archived tickets inside the retention window", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())
		applied, err := repo.CloseIfActive(ctx, ticket.ID, "staff-1", "resolved", clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())
		Expect(repo.SetTranscript(ctx, ticket.ID, "memory://paste/abc")).To(Succeed())
		applied, err = repo.ArchiveIfClosed(ctx, ticket.ID, clock.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())

		clock.Advance(ticketsCfg.ArchiveRetention - time.Minute)
		sweeper.RunOnce(ctx)

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.State).To(Equal(domain.TicketStateArchived))
	})

	It("skips the pass when another holder owns the lock", func() {
		ticket, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())

		locked := newSweeper(deniedLocker{})
		clock.Advance(ticketsCfg.InactivityTimeout + time.Minute)
		locked.RunOnce(ctx)

		current, err := engine.Get(ctx, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.State).To(Equal(domain.TicketStateOpen))
	})

	It("handles each ticket independently when one transcript retry fails", func() {
		first, err := engine.Create(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())
		second, err := engine.Create(ctx, "user-2", "reportBug")
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{first.ID, second.ID} {
			applied, cerr := repo.CloseIfActive(ctx, id, "staff-1", "resolved", clock.Now())
			Expect(cerr).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
		}
		// The first ticket's channel is gone, so its retry cannot succeed.
		Expect(channels.DeleteChannel(ctx, first.ChannelRef)).To(Succeed())

		sweeper.RunOnce(ctx)

		failed, err := engine.Get(ctx, first.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(failed.TranscriptPending).To(BeTrue())

		ok, err := engine.Get(ctx, second.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok.TranscriptPending).To(BeFalse())
		Expect(ok.State).To(Equal(domain.TicketStateArchived))
	})
})
