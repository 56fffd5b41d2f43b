package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/starbids/starbids/starbids"
	"github.com/starbids/starbids/starbids/auction"
	"github.com/starbids/starbids/starbids/database"
	"github.com/starbids/starbids/starbids/logger"
	"github.com/starbids/starbids/starbids/notify"
	"github.com/starbids/starbids/starbids/server"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := starbids.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(logger.ParseLevel(cfg.Log.Level))
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting StarBids auction service",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	var notifier auction.Notifier = auction.NopNotifier{}
	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token)
		if err != nil {
			slog.Error("Telegram notifier init failed",
				slog.String("error", err.Error()))
			os.Exit(-1)
		}
		notifier = tg
	}

	st := database.NewStore(db)
	hub := server.NewHub()
	manager := auction.NewManager(st, notifier, hub)

	scheduler := auction.NewScheduler(manager, cfg.SchedulerInterval())
	scheduler.Start()

	authService := server.NewAuthService(cfg.HTTP.JWTSecret)
	handler := server.NewHandler(manager, authService, hub, st)
	srv := server.New(cfg.HTTP.Addr, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	slog.Info("StarBids is now running. Press CTRL-C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server failed",
				slog.String("error", err.Error()))
		}
	}

	slog.Info("Shutting down...")
	scheduler.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed",
			slog.String("error", err.Error()))
	}
}
