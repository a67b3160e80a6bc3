package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/analysis"
	"github.com/brandpulse/sponsorship-analysis-go/internal/config"
	"github.com/brandpulse/sponsorship-analysis-go/internal/db"
	"github.com/brandpulse/sponsorship-analysis-go/internal/handler"
	"github.com/brandpulse/sponsorship-analysis-go/internal/metrics"
	"github.com/brandpulse/sponsorship-analysis-go/internal/middleware"
	"github.com/brandpulse/sponsorship-analysis-go/internal/provider"
	"github.com/brandpulse/sponsorship-analysis-go/internal/repository"
	"github.com/brandpulse/sponsorship-analysis-go/internal/service"
	"github.com/brandpulse/sponsorship-analysis-go/internal/validation"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

const maxVideosPerRequest = 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})

	registry := analysis.NewRegistry(client, analysis.PollerConfig{
		Interval:               cfg.Poller.Interval,
		MaxConsecutiveFailures: cfg.Poller.MaxConsecutiveFailures,
		InitialBackoff:         cfg.Poller.InitialBackoff,
		MaxBackoff:             cfg.Poller.MaxBackoff,
	}, cfg.Jobs.Retention)
	registry.StartJanitor(ctx, cfg.Jobs.JanitorInterval)

	// Job history persistence (optional)
	var repo *repository.Repository
	if cfg.Database.Enabled {
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			logger.Log.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close(pool)

		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Log.Fatal("failed to ensure database schema", zap.Error(err))
		}

		repo = repository.New(pool)
		registry.SetRecorder(repo)
		logger.Log.Info("database connection established",
			zap.String("host", cfg.Database.Host),
			zap.String("name", cfg.Database.Name),
		)
	}

	// Job lifecycle events (optional)
	var publisher *service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		publisher, err = service.NewEventPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("failed to initialize event publisher", zap.Error(err))
		}
		defer publisher.Close()

		registry.SetPublisher(publisher)
		logger.Log.Info("event publisher initialized",
			zap.String("exchange", cfg.RabbitMQ.Exchange),
		)
	}

	router := setupRouter(cfg, registry, client, repo, publisher)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("provider", cfg.Provider.BaseURL),
		)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("server error", zap.Error(err))
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		logger.Log.Info("server stopped gracefully")
	}
}

func setupRouter(
	cfg *config.Config,
	registry *analysis.Registry,
	client *provider.Client,
	repo *repository.Repository,
	publisher *service.EventPublisher,
) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	analysisHandler := handler.NewAnalysisHandler(registry, validation.New(maxVideosPerRequest), repo)
	videoHandler := handler.NewVideoHandler(client)
	healthHandler := newHealthHandler(repo, publisher)

	api := router.Group("/api")
	if cfg.Auth.Enabled {
		auth := middleware.NewAPIKeyAuth(cfg.Auth.APIKeys)
		api.Use(auth.Handler())
		if len(cfg.Auth.APIKeys) == 0 {
			logger.Log.Warn("auth enabled with no API keys configured, all API requests will be rejected")
		}
	}

	api.POST("/analyze/start", analysisHandler.StartAnalysis)
	api.GET("/analyze/status/:jobID", analysisHandler.GetStatus)
	api.DELETE("/analyze/:jobID", analysisHandler.CancelJob)
	api.GET("/analyze/history", analysisHandler.ListHistory)
	api.GET("/videos", videoHandler.ListVideos)
	api.GET("/videos/:videoID", videoHandler.GetVideoDetails)

	router.GET("/health", healthHandler.LivenessProbe)
	router.GET("/health/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}

// newHealthHandler avoids handing a typed-nil interface to the health checks
// when a dependency is not configured.
func newHealthHandler(repo *repository.Repository, publisher *service.EventPublisher) *handler.HealthHandler {
	var pinger handler.Pinger
	if repo != nil {
		pinger = repo
	}
	var checker handler.HealthChecker
	if publisher != nil {
		checker = publisher
	}
	return handler.NewHealthHandler(pinger, checker)
}
