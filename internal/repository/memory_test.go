package repository_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/repository"
)

var _ = Describe("MemoryTicketRepository", func() {
	var (
		ctx  context.Context
		repo *repository.MemoryTicketRepository
		base time.Time
	)

	newTicket := func(id, owner string) *domain.Ticket {
		return &domain.Ticket{
			ID:             id,
			Category:       "reportBug",
			OwnerID:        owner,
			ChannelRef:     "chan-" + id,
			State:          domain.TicketStateOpen,
			CreatedAt:      base,
			LastActivityAt: base,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = repository.NewMemoryTicketRepository()
		base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("Create", func() {
		It("rejects a second active ticket for the same owner and category", func() {
			Expect(repo.Create(ctx, newTicket("TCK-1", "user-1"))).To(Succeed())
			err := repo.Create(ctx, newTicket("TCK-2", "user-1"))
			Expect(err).To(MatchError(repository.ErrActiveTicketExists))
		})

		It("stores a copy, not the caller's pointer", func() {
			ticket := newTicket("TCK-1", "user-1")
			Expect(repo.Create(ctx, ticket)).To(Succeed())
			ticket.OwnerID = "mutated"

			stored, err := repo.GetByID(ctx, "TCK-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.OwnerID).To(Equal("user-1"))
		})
	})

	Describe("conditional transitions", func() {
		BeforeEach(func() {
			Expect(repo.Create(ctx, newTicket("TCK-1", "user-1"))).To(Succeed())
		})

		It("applies ClaimIfOpen exactly once", func() {
			applied, err := repo.ClaimIfOpen(ctx, "TCK-1", "staff-1", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = repo.ClaimIfOpen(ctx, "TCK-1", "staff-2", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())

			stored, err := repo.GetByID(ctx, "TCK-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ClaimedBy).To(HaveValue(Equal("staff-1")))
		})

		It("applies CloseIfActive once and sets the pending transcript flag", func() {
			applied, err := repo.CloseIfActive(ctx, "TCK-1", "staff-1", "resolved", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = repo.CloseIfActive(ctx, "TCK-1", "staff-2", "again", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())

			stored, err := repo.GetByID(ctx, "TCK-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.State).To(Equal(domain.TicketStateClosed))
			Expect(stored.ClosedBy).To(HaveValue(Equal("staff-1")))
			Expect(stored.TranscriptPending).To(BeTrue())
		})

		It("refuses ArchiveIfClosed on an open ticket", func() {
			applied, err := repo.ArchiveIfClosed(ctx, "TCK-1", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())
		})

		It("refuses PurgeIfArchivedBefore until the cutoff passes", func() {
			applied, err := repo.CloseIfActive(ctx, "TCK-1", "staff-1", "resolved", base)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
			applied, err = repo.ArchiveIfClosed(ctx, "TCK-1", base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = repo.PurgeIfArchivedBefore(ctx, "TCK-1", base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())

			applied, err = repo.PurgeIfArchivedBefore(ctx, "TCK-1", base.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			_, err = repo.GetByID(ctx, "TCK-1")
			Expect(err).To(MatchError(domain.ErrNotFound))
		})

		It("touches only active tickets", func() {
			later := base.Add(time.Hour)
			applied, err := repo.TouchIfActive(ctx, "TCK-1", later)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())

			_, err = repo.CloseIfActive(ctx, "TCK-1", "staff-1", "resolved", later)
			Expect(err).NotTo(HaveOccurred())

			applied, err = repo.TouchIfActive(ctx, "TCK-1", later.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())
		})
	})

	Describe("list queries", func() {
		It("selects only active tickets with stale activity", func() {
			stale := newTicket("TCK-STALE", "user-1")
			stale.LastActivityAt = base.Add(-80 * time.Hour)
			fresh := newTicket("TCK-FRESH", "user-2")
			Expect(repo.Create(ctx, stale)).To(Succeed())
			Expect(repo.Create(ctx, fresh)).To(Succeed())

			result, err := repo.ListInactiveSince(ctx, base.Add(-72*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal("TCK-STALE"))
		})

		It("separates transcript-pending from archive-ready closed tickets", func() {
			pending := newTicket("TCK-PEND", "user-1")
			ready := newTicket("TCK-READY", "user-2")
			Expect(repo.Create(ctx, pending)).To(Succeed())
			Expect(repo.Create(ctx, ready)).To(Succeed())
			for _, id := range []string{"TCK-PEND", "TCK-READY"} {
				applied, err := repo.CloseIfActive(ctx, id, "staff-1", "resolved", base)
				Expect(err).NotTo(HaveOccurred())
				Expect(applied).To(BeTrue())
			}
			Expect(repo.SetTranscript(ctx, "TCK-READY", "memory://paste/abc")).To(Succeed())

			pendingList, err := repo.ListTranscriptPending(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pendingList).To(HaveLen(1))
			Expect(pendingList[0].ID).To(Equal("TCK-PEND"))

			readyList, err := repo.ListClosedReadyToArchive(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(readyList).To(HaveLen(1))
			Expect(readyList[0].ID).To(Equal("TCK-READY"))
		})
	})

	Describe("participants", func() {
		BeforeEach(func() {
			Expect(repo.Create(ctx, newTicket("TCK-1", "user-1"))).To(Succeed())
		})

		It("adds and removes participants", func() {
			Expect(repo.AddParticipant(ctx, "TCK-1", "user-2")).To(Succeed())
			stored, err := repo.GetByID(ctx, "TCK-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Participants).To(ConsistOf("user-2"))

			Expect(repo.RemoveParticipant(ctx, "TCK-1", "user-2")).To(Succeed())
			stored, err = repo.GetByID(ctx, "TCK-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Participants).To(BeEmpty())
		})
	})
})
