package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/argussec/argus/internal/api/handlers"
	"github.com/argussec/argus/internal/api/router"
	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/feeds"
	"github.com/argussec/argus/internal/notify"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/validator"
	"github.com/argussec/argus/internal/repository/postgres"
	"github.com/argussec/argus/internal/services"
	"github.com/argussec/argus/internal/worker"
	"github.com/argussec/argus/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Repositories
	indicatorRepo := postgres.NewIndicatorRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	counterRepo := postgres.NewCounterRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	ruleRepo := postgres.NewRuleRepository(db)

	// Services
	notifier := notify.New(log, indicatorRepo, notify.Options{
		SlackWebhookURL: cfg.Notification.SlackWebhookURL,
		SlackChannel:    cfg.Notification.SlackChannel,
	})

	eventService := services.NewEventService(eventRepo, ruleRepo, notifier, nil, log, services.EventServiceOptions{
		RingSize:      cfg.Events.RingSize,
		RetentionDays: cfg.Events.RetentionDays,
	})

	ruleService := services.NewRuleService(ruleRepo, nil, log)
	if err := ruleService.Seed(context.Background(), cfg.Events.RulesFile); err != nil {
		log.Fatalf("failed to seed alert rules: %v", err)
	}

	var threatFeeds []indicator.Feed
	if cfg.Threat.FeedURL != "" {
		threatFeeds = append(threatFeeds, feeds.NewBlocklistFeed(log, cfg.Threat.FeedURL, cfg.Threat.FeedAPIKey))
	}
	threatService := services.NewThreatService(indicatorRepo, threatFeeds, eventService, nil, log, services.ThreatServiceOptions{
		CacheTTL:    cfg.Threat.CacheTTL,
		FeedTimeout: cfg.Threat.FeedTimeout,
	})

	rateLimitService := services.NewRateLimitService(counterRepo, activityRepo, eventService, nil, log, services.RateLimitServiceOptions{
		SigningKey:       cfg.Auth.SigningKey,
		SignatureMaxSkew: cfg.RateLimit.SignatureMaxSkew,
	})

	sessionService := services.NewSessionService(sessionRepo, eventService, threatService, nil, nil, log, services.SessionServiceOptions{
		MaxConcurrent: cfg.Session.MaxConcurrent,
		TTL:           cfg.Session.TTL,
	})

	// Background maintenance
	sweeper := worker.NewSweeper(sessionRepo, counterRepo, activityRepo, eventService, threatService, log)
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatalf("failed to start sweeper: %v", err)
	}
	defer sweeper.Stop()

	// HTTP layer
	val := validator.New()
	h := &router.Handlers{
		Health:    handlers.NewHealthHandler(db, log),
		Session:   handlers.NewSessionHandler(sessionService, log, val),
		Threat:    handlers.NewThreatHandler(threatService, log, val),
		RateLimit: handlers.NewRateLimitHandler(rateLimitService, log, val),
		Event:     handlers.NewEventHandler(eventService, log, val),
		Rule:      handlers.NewRuleHandler(ruleService, log, val),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "Forced shutdown")
	}
	log.Info("Server stopped")
}
