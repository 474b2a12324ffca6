package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/the-nook/nook-api/internal/api"
	"github.com/the-nook/nook-api/internal/blob"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/database"
	"github.com/the-nook/nook-api/internal/notify"
	"github.com/the-nook/nook-api/internal/ratelimit"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/service"
	"github.com/the-nook/nook-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting Nook API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Change feed: LISTEN connection -> in-process hub -> watchers
	hub := notify.NewHub(log)
	defer hub.Close()
	listener, err := notify.NewPGListener(cfg.Database.GetDSN(), hub, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start change listener")
	}
	defer listener.Close()
	go listener.Run(ctx)

	// Initialize repositories
	repos := repository.New(db, hub)

	uploader, err := blob.New(cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure blob storage")
	}

	// Initialize services
	services := service.NewServices(repos, uploader, cfg, log)

	routerOpts := []api.Option{api.WithHealthCheck(db.HealthCheck)}
	if cfg.Redis.URL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		limiter := ratelimit.NewRedisLimiter(rdb, cfg.Redis.RateLimitPrefix, cfg.Redis.AuthRateLimit, cfg.Redis.AuthRateWindow)
		routerOpts = append(routerOpts, api.WithLimiter(limiter))
		log.Info().Int("limit", cfg.Redis.AuthRateLimit).Dur("window", cfg.Redis.AuthRateWindow).Msg("Auth rate limiting enabled")
	} else {
		log.Warn().Msg("REDIS_URL not set, auth rate limiting disabled")
	}

	// Start background reconcile processor
	if cfg.Reconcile.Enabled {
		go services.Reconcile.StartProcessor(ctx)
		log.Info().Msg("Background reconcile processor started")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log, routerOpts...)

	// Create HTTP server. WriteTimeout stays zero so event streams and
	// exports are not cut off.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop reconcile processor
	services.Reconcile.StopProcessor()

	// Closing the hub ends open event streams so Shutdown is not held up
	hub.Close()
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
