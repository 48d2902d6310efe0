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

	"github.com/citymeet/eventhub/internal/audit"
	"github.com/citymeet/eventhub/internal/config"
	"github.com/citymeet/eventhub/internal/domain"
	"github.com/citymeet/eventhub/internal/infrastructure/postgres"
	"github.com/citymeet/eventhub/internal/infrastructure/redis"
	"github.com/citymeet/eventhub/internal/infrastructure/stats"
	"github.com/citymeet/eventhub/internal/pkg/logger"
	"github.com/citymeet/eventhub/internal/security"
	"github.com/citymeet/eventhub/internal/service"
	"github.com/citymeet/eventhub/internal/transport/rest"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	logger.Init()
	log := logger.Logger.With().
		Str("service", "eventhub").
		Str("env", cfg.AppEnv).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")
	}

	eventRepo := postgres.NewEventRepo(dbPool)
	requestRepo := postgres.NewRequestRepo(dbPool)
	userRepo := postgres.NewUserRepo(dbPool)
	categoryRepo := postgres.NewCategoryRepo(dbPool)

	// ---- Redis ----
	cache := redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()
		if err := cache.Client.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
	}

	// ---- Stats collaborator ----
	var statsClient domain.StatsClient
	if cfg.StatsURL != "" {
		statsClient = stats.NewClient(cfg.StatsURL, cfg.StatsTimeout)
	} else {
		log.Warn().Msg("STATS_URL not set, view counts will read as zero")
	}

	// ---- Application services ----
	auditLog := audit.New(logger.Logger)
	clock := service.SystemClock()

	eventSvc := service.NewEventService(
		eventRepo, requestRepo, userRepo, categoryRepo,
		statsClient, cache, auditLog, clock,
	)
	requestSvc := service.NewRequestService(
		requestRepo, eventRepo, userRepo,
		cache, auditLog, clock,
	)

	// ---- JWT verifier ----
	verifier := security.NewHS256Verifier(cfg.JWTSecret)

	// ---- Router ----
	httpHandler := rest.NewRouter(rest.RouterDeps{
		Cache:     cache,
		Handler:   rest.NewHandler(eventSvc, requestSvc),
		Verifier:  verifier,
		JWTIssuer: cfg.JWTIssuer,
	})

	// ---- Outbox worker (outbound event.* / request.* messages) ----
	if cfg.OutboxEnabled {
		postgres.NewOutboxWorker(dbPool, cfg.RabbitURL, cfg.RabbitExchange).Start(rootCtx)
		log.Info().Msg("outbox worker started")
	}

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("stopped")
}
