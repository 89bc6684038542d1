package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/JonkiPro/popcorn-sub004/api/swagger"
	"github.com/JonkiPro/popcorn-sub004/internal/handler"
	"github.com/JonkiPro/popcorn-sub004/internal/middleware"
	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/internal/repository"
	"github.com/JonkiPro/popcorn-sub004/internal/service"
	"github.com/JonkiPro/popcorn-sub004/pkg/cache"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	"github.com/JonkiPro/popcorn-sub004/pkg/database"
	"github.com/JonkiPro/popcorn-sub004/pkg/logger"
	"github.com/JonkiPro/popcorn-sub004/pkg/middleware/cors"
	"github.com/JonkiPro/popcorn-sub004/pkg/middleware/requestid"
)

// @title Popcorn Contribution API
// @version 1.0
// @description Crowd-sourced movie database with a reviewed contribution workflow.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	var cacheRepo *repository.CacheRepository
	if cfg.Movies.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, log)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()

	contributionRepo := repository.NewContributionRepository(db)
	movieRepo := repository.NewMovieRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, cfg.Movies.CacheEnabled, cfg.Movies.CacheTTL, log)
		cacheSvc.Instrument(metricsSvc)
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, log, cfg.JWT)
	movieSvc := service.NewMovieService(movieRepo, cacheSvc, auditRepo, validate, log)
	contributionSvc := service.NewContributionService(contributionRepo, movieRepo, auditRepo, cacheSvc, validate, log, cfg.Contributions)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportSvc = service.NewReportService(contributionRepo, validate, log, cfg.Reports)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	movieHandler := handler.NewMovieHandler(movieSvc)
	contributionHandler := handler.NewContributionHandler(contributionSvc, metricsSvc)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(logger.GinMiddleware(log))
	router.Use(middleware.Metrics(metricsSvc))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		movies := api.Group("/movies")
		{
			movies.GET("", movieHandler.List)
			movies.GET("/:id", movieHandler.Get)
			movies.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), movieHandler.Create)
		}

		contributions := api.Group("/contributions", middleware.JWT(authSvc))
		{
			contributions.POST("", contributionHandler.Submit)
			contributions.GET("", contributionHandler.List)
			contributions.GET("/:id", contributionHandler.Get)
			contributions.POST("/:id/verify",
				middleware.RequireRoles(models.RoleVerifier, models.RoleAdmin),
				contributionHandler.Verify)
		}

		if reportSvc != nil {
			reportHandler := handler.NewReportHandler(reportSvc)
			reports := api.Group("/reports",
				middleware.JWT(authSvc),
				middleware.RequireRoles(models.RoleVerifier, models.RoleAdmin))
			{
				reports.POST("", reportHandler.Create)
				reports.GET("/:id", reportHandler.Get)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reportSvc != nil {
		reportSvc.Start(ctx)
		defer reportSvc.Stop()
	}

	go refreshPendingGauge(ctx, contributionRepo, metricsSvc, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshPendingGauge keeps the review-backlog gauge roughly current.
func refreshPendingGauge(ctx context.Context, repo *repository.ContributionRepository, metrics *service.MetricsService, log *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			log.Warn("failed to count contributions", zap.Error(err))
		} else {
			metrics.SetPendingContributions(float64(counts[models.StatusPending]))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
