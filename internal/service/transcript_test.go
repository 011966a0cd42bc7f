package service_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
	"github.com/lunarcity/ticketdesk/internal/service"
)

var _ = Describe("TranscriptService", func() {
	var (
		ctx      context.Context
		clock    *fakeClock
		repo     *repository.MemoryTicketRepository
		channels *stubChannelService
	)

	newService := func(pub *flakyPublisher) *service.TranscriptService {
		return service.NewTranscriptService(testTranscriptConfig(), service.TranscriptDependencies{
			Channels:   channels,
			Publisher:  pub,
			TicketRepo: repo,
			Now:        clock.Now,
		})
	}

	makeClosedTicket := func() *domain.Ticket {
		ref, err := channels.CreateChannel(ctx, "user-1", "reportBug")
		Expect(err).NotTo(HaveOccurred())
		now := clock.Now()
		closedAt := now.Add(time.Hour)
		closedBy := "staff-1"
		reason := "resolved"
		ticket := &domain.Ticket{
			ID:                "TCK-TEST0001",
			Category:          "reportBug",
			OwnerID:           "user-1",
			ChannelRef:        ref,
			State:             domain.TicketStateClosed,
			CreatedAt:         now,
			LastActivityAt:    closedAt,
			ClosedAt:          &closedAt,
			ClosedBy:          &closedBy,
			CloseReason:       &reason,
			TranscriptPending: true,
		}
		Expect(repo.Create(ctx, ticket)).To(Succeed())
		return ticket
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		repo = repository.NewMemoryTicketRepository()
		channels = newStubChannelService()
	})

	Describe("Record", func() {
		It("stores the published link and clears the pending flag", func() {
			ticket := makeClosedTicket()
			svc := newService(newFlakyPublisher(0))

			Expect(svc.Record(ctx, ticket)).To(Succeed())

			stored, err := repo.GetByID(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TranscriptPending).To(BeFalse())
			Expect(stored.TranscriptRef).To(HaveValue(HavePrefix("memory://paste/")))
		})

		It("retries publishing and succeeds within the configured attempts", func() {
			ticket := makeClosedTicket()
			pub := newFlakyPublisher(2)
			svc := newService(pub)

			Expect(svc.Record(ctx, ticket)).To(Succeed())
			Expect(pub.callCount()).To(Equal(3))
		})

		It("leaves the pending flag set when every attempt fails", func() {
			ticket := makeClosedTicket()
			pub := newFlakyPublisher(10)
			svc := newService(pub)

			err := svc.Record(ctx, ticket)
			Expect(err).To(MatchError(domain.ErrTranscriptUnavailable))
			Expect(pub.callCount()).To(Equal(3))

			stored, gerr := repo.GetByID(ctx, ticket.ID)
			Expect(gerr).NotTo(HaveOccurred())
			Expect(stored.TranscriptPending).To(BeTrue())
		})

		It("fails when the channel is gone", func() {
			ticket := makeClosedTicket()
			Expect(channels.DeleteChannel(ctx, ticket.ChannelRef)).To(Succeed())
			svc := newService(newFlakyPublisher(0))

			err := svc.Record(ctx, ticket)
			Expect(err).To(MatchError(domain.ErrTranscriptUnavailable))
		})
	})

	Describe("RenderTranscript", func() {
		It("renders header fields and messages in order", func() {
			ticket := makeClosedTicket()
			sentAt := clock.Now().Add(10 * time.Minute)
			records := []platform.MessageRecord{
				{AuthorID: "user-1", AuthorName: "Alice", Body: "my game crashed", SentAt: sentAt},
				{AuthorID: "staff-1", AuthorName: "Bob", Body: "looking into it", SentAt: sentAt.Add(time.Minute),
					Attachments: []string{"crash.log"}},
			}

			doc := service.RenderTranscript(ticket, records, clock.Now().Add(2*time.Hour))
			Expect(doc).To(ContainSubstring("Ticket ID: TCK-TEST0001"))
			Expect(doc).To(ContainSubstring("Created by: user-1"))
			Expect(doc).To(ContainSubstring("Closed by: staff-1"))
			Expect(doc).To(ContainSubstring("Reason: resolved"))
			Expect(doc).To(ContainSubstring("Alice: my game crashed"))
			Expect(doc).To(ContainSubstring("[Attachments: crash.log]"))

			Expect(strings.Index(doc, "Alice")).To(BeNumerically("<", strings.Index(doc, "Bob")))
		})

		It("falls back to the author id when no display name is known", func() {
			ticket := makeClosedTicket()
			records := []platform.MessageRecord{
				{AuthorID: "user-9", Body: "hello", SentAt: clock.Now()},
			}
			doc := service.RenderTranscript(ticket, records, clock.Now())
			Expect(doc).To(ContainSubstring("user-9: hello"))
		})
	})
})
