package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/domain"
	"github.com/lunarcity/ticketdesk/internal/events"
	"github.com/lunarcity/ticketdesk/internal/observability"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
)

// TranscriptService reads a closed ticket's channel history, renders it
// into an archival document and publishes it through the paste
// collaborator. Rendering is pure; publishing is the only network
// boundary and is retried a bounded number of times with backoff.
type TranscriptService struct {
	cfg        config.TranscriptConfig
	channels   platform.ChannelService
	publisher  platform.PastePublisher
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// TranscriptDependencies bundles collaborators for the service.
type TranscriptDependencies struct {
	Channels   platform.ChannelService
	Publisher  platform.PastePublisher
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// NewTranscriptService constructs the service.
func NewTranscriptService(cfg config.TranscriptConfig, deps TranscriptDependencies) *TranscriptService {
	svc := &TranscriptService{
		cfg:        cfg,
		channels:   deps.Channels,
		publisher:  deps.Publisher,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.cfg.PublishAttempts <= 0 {
		svc.cfg.PublishAttempts = 1
	}
	return svc
}

// Capture generates and records the transcript asynchronously, bounded
// by the configured timeout. A close never waits on it.
func (s *TranscriptService) Capture(ticket *domain.Ticket) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		_ = s.Record(ctx, ticket)
	}()
}

// Record generates the transcript and stores the resulting link. On
// failure the ticket keeps its transcript_pending flag so a later sweep
// retries; the error is recorded, not raised.
func (s *TranscriptService) Record(ctx context.Context, ticket *domain.Ticket) error {
	url, err := s.Generate(ctx, ticket)
	if err != nil {
		s.metrics.Inc(observability.MetricTranscriptsFailed)
		s.logger.Warn("transcript generation failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		s.publish(ctx, events.Event{
			Type:     events.EventTranscriptFailed,
			TicketID: ticket.ID,
			Payload:  events.TranscriptPayload{Error: err.Error()},
		})
		return err
	}

	if err := s.tickets.SetTranscript(ctx, ticket.ID, url); err != nil {
		s.logger.Error("failed to store transcript ref",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return &domain.StoreError{Op: "set transcript", Err: err}
	}
	s.metrics.Inc(observability.MetricTranscriptsOK)
	s.publish(ctx, events.Event{
		Type:     events.EventTranscriptReady,
		TicketID: ticket.ID,
		Payload:  events.TranscriptPayload{TranscriptRef: url},
	})
	return nil
}

// Generate reads the channel history, renders the document and
// publishes it, returning the hosted link.
func (s *TranscriptService) Generate(ctx context.Context, ticket *domain.Ticket) (string, error) {
	records, err := s.readHistory(ctx, ticket.ChannelRef)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
	}

	doc := RenderTranscript(ticket, records, s.now())

	var lastErr error
	for attempt := 0; attempt < s.cfg.PublishAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.cfg.PublishBackoff*time.Duration(attempt)); err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
			}
		}
		url, err := s.publisher.Publish(ctx, doc)
		if err == nil {
			return url, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, lastErr)
}

// readHistory drains the lazy iterator, restarting once on a read
// failure before giving up.
func (s *TranscriptService) readHistory(ctx context.Context, channelRef string) ([]platform.MessageRecord, error) {
	it, err := s.channels.FetchMessageHistory(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	records, err := drain(it)
	if err == nil {
		return records, nil
	}
	it.Restart()
	return drain(it)
}

func drain(it platform.HistoryIterator) ([]platform.MessageRecord, error) {
	var records []platform.MessageRecord
	for it.Next() {
		records = append(records, it.Record())
	}
	return records, it.Err()
}

func (s *TranscriptService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// RenderTranscript turns a ticket and its message history into the
// archival document. Pure and side-effect free.
func RenderTranscript(ticket *domain.Ticket, records []platform.MessageRecord, renderedAt time.Time) string {
	var b strings.Builder
	b.WriteString("=== TICKET TRANSCRIPT ===\n")
	fmt.Fprintf(&b, "Ticket ID: %s\n", ticket.ID)
	fmt.Fprintf(&b, "Created by: %s\n", ticket.OwnerID)
	fmt.Fprintf(&b, "Category: %s\n", ticket.Category)
	fmt.Fprintf(&b, "Created at: %s\n", ticket.CreatedAt.UTC().Format(time.RFC3339))
	if ticket.ClosedAt != nil {
		fmt.Fprintf(&b, "Closed at: %s\n", ticket.ClosedAt.UTC().Format(time.RFC3339))
	}
	if ticket.ClosedBy != nil {
		fmt.Fprintf(&b, "Closed by: %s\n", *ticket.ClosedBy)
	}
	if ticket.CloseReason != nil {
		fmt.Fprintf(&b, "Reason: %s\n", *ticket.CloseReason)
	}
	fmt.Fprintf(&b, "Rendered at: %s\n", renderedAt.UTC().Format(time.RFC3339))
	b.WriteString("\n=== MESSAGES ===\n\n")

	for _, record := range records {
		author := record.AuthorName
		if author == "" {
			author = record.AuthorID
		}
		body := strings.ReplaceAll(record.Body, "\n", " ")
		line := fmt.Sprintf("[%s] %s: %s", record.SentAt.UTC().Format("2006-01-02 15:04:05"), author, body)
		if len(record.Attachments) > 0 {
			line += " [Attachments: " + strings.Join(record.Attachments, ", ") + "]"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
