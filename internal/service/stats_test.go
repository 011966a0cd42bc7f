package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/repository"
	"github.com/lunarcity/ticketdesk/internal/service"
)

var _ = Describe("StatsService", func() {
	var (
		ctx   context.Context
		clock *fakeClock
		repo  *repository.MemoryTicketRepository
		stats *service.StatsService
	)

	seedTicket := func(id, owner string, createdAt time.Time, claimedBy string, closedAt *time.Time) {
		ticket := &domain.Ticket{
			ID:             id,
			Category:       "reportBug",
			OwnerID:        owner,
			ChannelRef:     "chan-" + id,
			State:          domain.TicketStateOpen,
			CreatedAt:      createdAt,
			LastActivityAt: createdAt,
		}
		if claimedBy != "" {
			claimant := claimedBy
			ticket.ClaimedBy = &claimant
			ticket.State = domain.TicketStateClaimed
		}
		if closedAt != nil {
			ticket.State = domain.TicketStateClosed
			ticket.ClosedAt = closedAt
			ticket.LastActivityAt = *closedAt
		}
		Expect(repo.Create(ctx, ticket)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		repo = repository.NewMemoryTicketRepository()
		stats = service.NewStatsService(repo, clock.Now)
	})

	Describe("Window", func() {
		It("rejects an unknown window", func() {
			_, err := stats.Window(ctx, domain.StatsWindow("fortnight"))
			var cfgErr *domain.ConfigError
			Expect(err).To(BeAssignableToTypeOf(cfgErr))
		})

		It("counts tickets opened, claimed and closed inside the window", func() {
			now := clock.Now()
			closedAt := now.Add(-2 * time.Hour)
			seedTicket("TCK-A", "user-1", now.Add(-3*time.Hour), "staff-1", &closedAt)
			seedTicket("TCK-B", "user-2", now.Add(-1*time.Hour), "", nil)

			result, err := stats.Window(ctx, domain.StatsWindowDay)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Window).To(Equal(domain.StatsWindowDay))
			Expect(result.Opened).To(Equal(int64(2)))
			Expect(result.Claimed).To(Equal(int64(1)))
			Expect(result.Closed).To(Equal(int64(1)))
			Expect(result.TopClaimants).To(HaveLen(1))
			Expect(result.TopClaimants[0].StaffID).To(Equal("staff-1"))
		})

		It("includes a ticket created exactly at the lower bound", func() {
			seedTicket("TCK-EDGE", "user-1", clock.Now().Add(-7*24*time.Hour), "", nil)

			result, err := stats.Window(ctx, domain.StatsWindowWeek)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Opened).To(Equal(int64(1)))
		})

		It("excludes tickets older than the window", func() {
			seedTicket("TCK-OLD", "user-1", clock.Now().Add(-25*time.Hour), "", nil)

			result, err := stats.Window(ctx, domain.StatsWindowDay)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Opened).To(BeZero())
		})

		It("covers everything with the all window", func() {
			seedTicket("TCK-ANCIENT", "user-1", clock.Now().Add(-365*24*time.Hour), "", nil)

			result, err := stats.Window(ctx, domain.StatsWindowAll)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Opened).To(Equal(int64(1)))
		})
	})

	Describe("User", func() {
		It("splits created tickets into active and closed", func() {
			now := clock.Now()
			closedAt := now.Add(-time.Hour)
			seedTicket("TCK-U1", "user-1", now.Add(-2*time.Hour), "", &closedAt)
			seedTicket("TCK-U2", "user-1", now.Add(-time.Hour), "", nil)

			result, err := stats.User(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Created).To(Equal(int64(2)))
			Expect(result.CreatedActive).To(Equal(int64(1)))
			Expect(result.CreatedClosed).To(Equal(int64(1)))
			Expect(result.HasStaffHistory).To(BeFalse())
		})

		It("reports handled tickets and average handle time for staff", func() {
			now := clock.Now()
			closedAt := now.Add(-time.Hour)
			seedTicket("TCK-S1", "user-1", closedAt.Add(-4*time.Hour), "staff-1", &closedAt)

			result, err := stats.User(ctx, "staff-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Claimed).To(Equal(int64(1)))
			Expect(result.HasStaffHistory).To(BeTrue())
			Expect(result.AvgHandleHours).To(BeNumerically("~", 4.0, 0.01))
		})
	})
})
