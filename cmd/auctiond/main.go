package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/escrowauction/internal/config"
	"github.com/efreitasn/escrowauction/internal/custody"
	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/engine"
	"github.com/efreitasn/escrowauction/internal/handler"
	"github.com/efreitasn/escrowauction/internal/payment"
	"github.com/efreitasn/escrowauction/internal/realtime"
	"github.com/efreitasn/escrowauction/internal/royalty"
	"github.com/efreitasn/escrowauction/internal/service"
	"github.com/efreitasn/escrowauction/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Custody and payments.
	vault := custody.NewVault()
	ledger := payment.NewLedger()
	allowlist := domain.NewAllowlist()
	payouts, err := royalty.NewRouter(cfg.PlatformFeeBps, cfg.FeeRecipient, allowlist)
	if err != nil {
		logger.Error("invalid payout configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Notifications: log, websocket hub and webhooks.
	hub := realtime.NewHub(logger)
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, logger)
	notificationSvc := service.NewNotificationService(store.NewNotificationLog(), hub, webhookSvc, logger)

	// Engine.
	auctions := engine.NewEngine(
		store.NewListingStore(),
		allowlist,
		custody.NewRegistry(vault, cfg.MarketplaceAddress),
		ledger,
		payouts,
		cfg.Rules(),
		engine.WithLogger(logger),
		engine.WithNotifier(notificationSvc),
	)
	sweeper := engine.NewSweeper(cfg.SweepInterval, auctions, logger)

	// Router.
	router := handler.NewRouter(handler.Services{
		Auctions:      service.NewAuctionService(auctions),
		Wallets:       service.NewWalletService(vault, ledger, allowlist, cfg.MarketplaceAddress),
		Allowlist:     service.NewAllowlistService(allowlist, cfg.PlatformFeeBps),
		Notifications: notificationSvc,
		Webhooks:      webhookSvc,
	}, hub, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gCtx)
	})

	// Graceful shutdown: stop HTTP server, then drain webhook deliveries.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := webhookSvc.Wait(shutdownCtx); err != nil {
			logger.Warn("webhook deliveries still pending", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
