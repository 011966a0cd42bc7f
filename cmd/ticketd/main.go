package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/lunarcity/ticketdesk/internal/api/http"
	"github.com/lunarcity/ticketdesk/internal/api/http/handlers"
	"github.com/lunarcity/ticketdesk/internal/auth"
	"github.com/lunarcity/ticketdesk/internal/bootstrap"
	"github.com/lunarcity/ticketdesk/internal/config"
	"github.com/lunarcity/ticketdesk/internal/events"
	"github.com/lunarcity/ticketdesk/internal/observability"
	"github.com/lunarcity/ticketdesk/internal/persistence"
	"github.com/lunarcity/ticketdesk/internal/platform"
	"github.com/lunarcity/ticketdesk/internal/repository"
	"github.com/lunarcity/ticketdesk/internal/service"
	"github.com/lunarcity/ticketdesk/internal/sweep"
	"github.com/lunarcity/ticketdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo repository.TicketRepository
		panelRepo  repository.PanelRepository
		staffRepo  repository.StaffRepository
	)
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		panelRepo = repository.NewPanelRepository(pool)
		staffRepo = repository.NewStaffRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		panelRepo = repository.NewMemoryPanelRepository()
		staffRepo = repository.NewMemoryStaffRepository()
	}

	// Platform adapters run in-memory; a production deployment swaps in
	// real chat platform and paste host clients here.
	channels := platform.NewInMemoryChannelService()
	publisher := platform.NewInMemoryPastePublisher()

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	transcripts := service.NewTranscriptService(cfg.Transcript, service.TranscriptDependencies{
		Channels:   channels,
		Publisher:  publisher,
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	engine := service.NewLifecycleEngine(cfg.Tickets, service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		Channels:    channels,
		Transcripts: transcripts,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})

	statsService := service.NewStatsService(ticketRepo, nil)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	bootstrapper := bootstrap.NewBootstrapper(ticketRepo, panelRepo, channels, logger)
	if err := bootstrapper.Restore(ctx); err != nil {
		logger.Error("recovery bootstrap failed", zap.Error(err))
	}

	var locker sweep.Locker = sweep.NoopLocker{}
	if redis != nil && redis.Client != nil {
		locker = redis
	}
	sweeper := sweep.NewSweeper(cfg.Sweep, cfg.Tickets, sweep.SweeperDependencies{
		Engine:      engine,
		Transcripts: transcripts,
		TicketRepo:  ticketRepo,
		Locker:      locker,
		Logger:      logger,
		Metrics:     metrics,
	})
	go sweeper.Run(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:        handlers.NewTicketsHandler(engine),
		Stats:          handlers.NewStatsHandler(statsService),
		Staff:          handlers.NewStaffHandler(staffRepo, tokens),
		Admin:          handlers.NewAdminHandler(panelRepo, staffRepo, cfg.Auth),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
