package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/observability"
	"github.com/lunarcity/ticketdesk/internal/repository"
	"github.com/lunarcity/ticketdesk/internal/service"
)

const lockKey = "ticketdesk:sweep:lock"

// Locker guards a sweep run so only one instance advances lifecycles at
// a time. The Redis wrapper satisfies it; NoopLocker serves single-node
// deployments without Redis.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// NoopLocker always grants the lock.
type NoopLocker struct{}

func (NoopLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NoopLocker) ReleaseLock(context.Context, string) error                        { return nil }

// Sweeper drives the periodic lifecycle pass: close inactive tickets,
// retry pending transcripts, archive closed tickets and purge expired
// archives. Each ticket is handled independently so a single failure
// never aborts the run.
type Sweeper struct {
	cfg         config.SweepConfig
	tickets     config.TicketsConfig
	engine      *service.LifecycleEngine
	transcripts *service.TranscriptService
	repo        repository.TicketRepository
	locker      Locker
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	Engine      *service.LifecycleEngine
	Transcripts *service.TranscriptService
	TicketRepo  repository.TicketRepository
	Locker      Locker
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
}

// NewSweeper constructs the sweeper.
func NewSweeper(cfg config.SweepConfig, tickets config.TicketsConfig, deps SweeperDependencies) *Sweeper {
	s := &Sweeper{
		cfg:         cfg,
		tickets:     tickets,
		engine:      deps.Engine,
		transcripts: deps.Transcripts,
		repo:        deps.TicketRepo,
		locker:      deps.Locker,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		now:         deps.Now,
	}
	if s.locker == nil {
		s.locker = NoopLocker{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run executes sweep passes on the configured interval until the
// context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep pass under the leader lock.
func (s *Sweeper) RunOnce(ctx context.Context) {
	acquired, err := s.locker.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn("sweep lock unavailable", zap.Error(err))
		return
	}
	if !acquired {
		s.logger.Debug("sweep lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	s.metrics.Inc(observability.MetricSweepRuns)
	started := s.now()

	s.closeInactive(ctx)
	s.retryTranscripts(ctx)
	s.archiveClosed(ctx)
	s.purgeExpired(ctx)

	s.logger.Info("sweep pass complete", zap.Duration("elapsed", s.now().Sub(started)))
}

// closeInactive closes active tickets whose last activity predates the
// inactivity window.
func (s *Sweeper) closeInactive(ctx context.Context) {
	cutoff := s.now().Add(-s.tickets.InactivityTimeout)
	stale, err := s.repo.ListInactiveSince(ctx, cutoff)
	if err != nil {
		s.fail("list inactive tickets", err)
		return
	}
	for i := range stale {
		ticket := &stale[i]
		if _, err := s.engine.Close(ctx, ticket.ID, "", "inactivity timeout", service.OriginSweep); err != nil {
			s.fail("close inactive ticket", err, zap.String("ticket_id", ticket.ID))
			continue
		}
		s.logger.Info("closed inactive ticket",
			zap.String("ticket_id", ticket.ID),
			zap.Time("last_activity_at", ticket.LastActivityAt))
	}
}

// retryTranscripts re-runs transcript generation for closed tickets
// whose capture previously failed.
func (s *Sweeper) retryTranscripts(ctx context.Context) {
	pending, err := s.repo.ListTranscriptPending(ctx)
	if err != nil {
		s.fail("list transcript pending", err)
		return
	}
	for i := range pending {
		ticket := &pending[i]
		if err := s.transcripts.Record(ctx, ticket); err != nil {
			s.fail("retry transcript", err, zap.String("ticket_id", ticket.ID))
		}
	}
}

// archiveClosed archives closed tickets once their transcript has been
// recorded, starting the retention clock.
func (s *Sweeper) archiveClosed(ctx context.Context) {
	ready, err := s.repo.ListClosedReadyToArchive(ctx)
	if err != nil {
		s.fail("list closed tickets", err)
		return
	}
	for i := range ready {
		ticket := &ready[i]
		if _, err := s.engine.Archive(ctx, ticket.ID, service.OriginSweep); err != nil {
			s.fail("archive ticket", err, zap.String("ticket_id", ticket.ID))
		}
	}
}

// purgeExpired permanently removes archived tickets past the retention
// window.
func (s *Sweeper) purgeExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.tickets.ArchiveRetention)
	expired, err := s.repo.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		s.fail("list archived tickets", err)
		return
	}
	for i := range expired {
		ticket := &expired[i]
		if err := s.engine.Purge(ctx, ticket.ID, service.OriginSweep); err != nil {
			s.fail("purge ticket", err, zap.String("ticket_id", ticket.ID))
		}
	}
}

func (s *Sweeper) fail(op string, err error, fields ...zap.Field) {
	s.metrics.Inc(observability.MetricSweepFailures)
	fields = append(fields, zap.String("op", op), zap.Error(err))
	s.logger.Warn("sweep step failed", fields...)
}
