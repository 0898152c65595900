package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tarakiga/ccas/api/swagger"
	"github.com/tarakiga/ccas/internal/handler"
	"github.com/tarakiga/ccas/internal/middleware"
	"github.com/tarakiga/ccas/internal/repository"
	"github.com/tarakiga/ccas/internal/service"
	"github.com/tarakiga/ccas/pkg/cache"
	"github.com/tarakiga/ccas/pkg/config"
	"github.com/tarakiga/ccas/pkg/database"
	"github.com/tarakiga/ccas/pkg/logger"
	"github.com/tarakiga/ccas/pkg/mailer"
	corsmiddleware "github.com/tarakiga/ccas/pkg/middleware/cors"
	reqidmiddleware "github.com/tarakiga/ccas/pkg/middleware/requestid"
)

// @title CCAS API
// @version 1.0.0
// @description Customs clearance shipment tracking and alerting
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stores
	shipmentRepo := repository.NewShipmentRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	userRepo := repository.NewUserRepository(db)

	// services
	metrics := service.NewMetricsService()
	transport := mailer.NewSMTPTransport(cfg.SMTP, logr)
	notifier := service.NewNotifierService(alertRepo, transport, metrics, cfg.Notifier, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	workflowSvc := service.NewWorkflowService(workflowRepo, templateRepo, userRepo,
		cfg.Workflow.DefaultAssigneeID, logr, service.WithStepMetrics(metrics))
	alertSvc := service.NewAlertService(alertRepo, workflowRepo, notifier, cfg.Alerts, logr,
		service.WithAlertMetrics(metrics))
	shipmentSvc := service.NewShipmentService(shipmentRepo, workflowSvc, metrics, logr,
		service.WithShipmentEvaluator(alertSvc))
	scheduler := service.NewEvaluationScheduler(shipmentRepo, alertSvc, workflowRepo, metrics, cfg.Alerts, logr)
	dashboardSvc := service.NewDashboardService(shipmentRepo, workflowRepo, alertRepo,
		redisClient, cfg.Dashboard.CacheTTL, logr)
	reportSvc := service.NewReportService(shipmentRepo, workflowRepo, logr)

	go scheduler.Run(ctx)
	go notifier.Run(ctx)
	if _, err := notifier.ProcessPending(ctx); err != nil {
		logr.Sugar().Warnw("startup delivery sweep failed", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.RouterDeps{
		Shipments: handler.NewShipmentHandler(shipmentSvc, workflowSvc, dashboardSvc),
		Workflow:  handler.NewWorkflowHandler(workflowSvc),
		Alerts:    handler.NewAlertHandler(alertSvc, scheduler),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Reports:   handler.NewReportHandler(reportSvc),
		Metrics:   handler.NewMetricsHandler(metrics),
		JWTSecret: cfg.JWT.Secret,
		APIPrefix: cfg.APIPrefix,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
