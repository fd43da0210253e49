package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/auth"
	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/config"
	"github.com/mauv0809/pickup/internal/database"
	server "github.com/mauv0809/pickup/internal/http"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier/slack"
	"github.com/mauv0809/pickup/internal/presence"
	"github.com/mauv0809/pickup/internal/pubsub"
	"github.com/mauv0809/pickup/internal/realtime"
	"github.com/mauv0809/pickup/internal/roster"
	"github.com/mauv0809/pickup/internal/scheduler"
	"github.com/mauv0809/pickup/internal/user"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	userStore := user.New(db)
	matchStore := match.New(db)
	communityStore := community.New(db)
	chatStore := chat.New(db)

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)

	var pubsubClient pubsub.PubSubClient
	if cfg.ProjectID != "" {
		pubsubClient, err = pubsub.New(context.Background(), cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
		defer pubsubClient.Close()
	} else {
		log.Info("GCP_PROJECT not set, announcements go straight to the notifier")
	}

	rosterSvc := roster.New(matchStore, communityStore, userStore, notifier, metricsSvc, pubsubClient)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	coordinator := realtime.NewCoordinator(
		presence.NewRegistry(),
		realtime.StoreMembership{Matches: matchStore, Communities: communityStore},
		chatStore,
		userStore,
		metricsSvc,
	)
	realtimeHandler := realtime.NewHandler(coordinator, issuer, userStore, realtime.HandlerConfig{
		AllowAnonymous: cfg.Realtime.AllowAnonymous,
		AllowedOrigin:  cfg.CORSOrigin,
	})

	sweeper, err := scheduler.New(matchStore, metricsSvc, scheduler.DefaultInterval)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %s", err)
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %s", err)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			log.Error("Scheduler shutdown failed", "error", err)
		}
	}()

	s := server.NewServer(server.Services{
		Users:       userStore,
		Matches:     matchStore,
		Communities: communityStore,
		Chats:       chatStore,
		Roster:      rosterSvc,
		Coordinator: coordinator,
		Realtime:    realtimeHandler,
		Issuer:      issuer,
		PubSub:      pubsubClient,
	}, metricsSvc, metricsHandler, cfg)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
