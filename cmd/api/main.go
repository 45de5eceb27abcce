package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/ai"
	httpapi "github.com/spec-kit/helpdesk-core/internal/api/http"
	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/observability"
	"github.com/spec-kit/helpdesk-core/internal/persistence"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	reportRepo := repository.NewMisuseReportRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	classifier := ai.NewOpenAIClient(cfg.AI, logger)

	limiter := service.NewRateLimiter(ticketRepo, cfg.RateLimit)
	gate := service.NewModerationGate(classifier, violationRepo, dispatcher, cfg.Moderation, logger)
	router := service.NewDepartmentRouter(classifier, logger)
	assignment := service.NewSingleAgentResolver(userRepo)

	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Limiter:    limiter,
		Gate:       gate,
		Router:     router,
		Assignment: assignment,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	scanner := service.NewMisuseScanner(service.MisuseScannerDependencies{
		UserRepo:      userRepo,
		TicketRepo:    ticketRepo,
		ViolationRepo: violationRepo,
		ReportRepo:    reportRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	}, cfg.Scan)

	service.NewNotificationService(cfg.Notification, dispatcher, logger)

	scanWorker := worker.NewMisuseWorker(scanner, rdb, cfg.Scan, logger)
	scanWorker.Start()
	defer scanWorker.Stop()

	tokens := auth.NewTokenManager(cfg.Auth)
	authMw := auth.NewMiddleware(tokens, userRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httpapi.ErrorHandler(logger, metrics),
	})
	httpapi.RegisterMiddlewares(app, cfg.App, logger, metrics)
	httpapi.RegisterRoutes(app, httpapi.RouterDependencies{
		Cfg:     cfg.App,
		Auth:    authMw,
		Tickets: handlers.NewTicketsHandler(ticketSvc, metrics),
		Admin:   handlers.NewAdminHandler(scanWorker, violationRepo, reportRepo, metrics),
		Health:  handlers.NewHealthHandler(cfg.App.Version, pg, rdb),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
