package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/civic-report-service/internal/api/http"
	"github.com/spec-kit/civic-report-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/observability"
	"github.com/spec-kit/civic-report-service/internal/persistence"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/service"
	"github.com/spec-kit/civic-report-service/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	profileRepo := repository.NewProfileRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	historyRepo := repository.NewReportHistoryRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	roleCache := auth.NewRoleCache(redis.Client, profileRepo, cfg.Auth.RoleCacheTTL(), logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		ProfileRepo:       profileRepo,
		PasswordResetRepo: resetRepo,
		RoleCache:         roleCache,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo:  reportRepo,
		ProfileRepo: profileRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		ReportRepo:  reportRepo,
		ProfileRepo: profileRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, redis.Client, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), roleCache)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	usersHandler := handlers.NewUsersHandler(authService, logger)
	reportsHandler := handlers.NewReportsHandler(reportService)
	adminReportsHandler := handlers.NewAdminReportsHandler(reportService, workflowService)
	agentReportsHandler := handlers.NewAgentReportsHandler(reportService, workflowService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		Reports:        reportsHandler,
		AdminReports:   adminReportsHandler,
		AgentReports:   agentReportsHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
