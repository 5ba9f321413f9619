package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockdeck/stockdeck/internal/api"
	"github.com/stockdeck/stockdeck/internal/api/handler"
	"github.com/stockdeck/stockdeck/internal/auth"
	"github.com/stockdeck/stockdeck/internal/config"
	"github.com/stockdeck/stockdeck/internal/dashboard"
	"github.com/stockdeck/stockdeck/internal/database"
	"github.com/stockdeck/stockdeck/internal/favorites"
	"github.com/stockdeck/stockdeck/internal/identity"
	"github.com/stockdeck/stockdeck/internal/market"
	"github.com/stockdeck/stockdeck/internal/notify"
	"github.com/stockdeck/stockdeck/internal/summary"
	"github.com/stockdeck/stockdeck/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := user.NewRepository(db.Pool())
	favRepo := favorites.NewRepository(db.Pool())

	verifier := identity.NewTokenVerifier(cfg.FirebaseProjectID)
	authService := auth.NewService(verifier, userRepo)

	marketClient := market.NewClient(cfg.PolygonBaseURL, cfg.PolygonAPIKey,
		time.Duration(cfg.MarketTimeoutSeconds)*time.Second)
	aggregator := dashboard.NewAggregator(favRepo, marketClient)

	relay := initRelay(cfg)
	startMonitor(ctx, cfg, relay)

	var topics handler.TopicManager
	if relay != nil {
		topics = relay
	}

	router := api.NewRouter(api.RouterDeps{
		Config:        cfg,
		Authenticator: authService,
		DBPinger:      db,
		Favorites:     favRepo,
		Market:        marketClient,
		Aggregator:    aggregator,
		Topics:        topics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting stockdeck server", "addr", srv.Addr, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// initRelay builds the push relay when service-account credentials are
// configured. Push is optional; the server runs without it.
func initRelay(cfg *config.Config) *notify.Relay {
	if cfg.FirebaseCredsPath == "" && cfg.FirebaseServiceAccountJSON == "" {
		slog.Info("push notifications disabled; no service account configured")
		return nil
	}

	sa, err := notify.LoadServiceAccount(cfg.FirebaseCredsPath, cfg.FirebaseServiceAccountJSON)
	if err != nil {
		slog.Warn("push notifications disabled; service account unusable", "error", err)
		return nil
	}

	return notify.NewRelay(sa)
}

// startMonitor launches the movement alert monitor when summary generation
// and push are both configured.
func startMonitor(ctx context.Context, cfg *config.Config, relay *notify.Relay) {
	if !cfg.SummaryEnabled || relay == nil {
		return
	}
	if cfg.FlatFilesAccessKey == "" || cfg.FlatFilesSecretKey == "" {
		slog.Warn("summary enabled but flat file credentials missing; alert monitor disabled")
		return
	}

	store, err := summary.NewFlatFileStore(ctx, summary.FlatFileConfig{
		Endpoint:  cfg.FlatFilesEndpoint,
		Bucket:    cfg.FlatFilesBucket,
		AccessKey: cfg.FlatFilesAccessKey,
		SecretKey: cfg.FlatFilesSecretKey,
	})
	if err != nil {
		slog.Warn("alert monitor disabled; flat file store unavailable", "error", err)
		return
	}

	generator := summary.NewGenerator(store)
	monitor := notify.NewMonitor(generator, relay, cfg.AlertTopic,
		cfg.MovementThreshold, time.Duration(cfg.MonitorIntervalSeconds)*time.Second)

	go monitor.Start(ctx)
}
