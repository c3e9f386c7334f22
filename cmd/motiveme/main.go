package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/motiveme/internal/config"
	"github.com/dukerupert/motiveme/internal/database"
	"github.com/dukerupert/motiveme/internal/email"
	"github.com/dukerupert/motiveme/internal/logging"
	"github.com/dukerupert/motiveme/internal/server"
	"github.com/dukerupert/motiveme/internal/sweep"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	reminderHour, reminderMinute, err := cfg.ReminderClock()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !emailClient.Configured() {
		logger.Warn("postmark token not set, emails are disabled")
	}

	srv := server.New(db, emailClient, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
		MetricsEnabled: cfg.MetricsEnabled,
		DefaultZone:    loc,
	}, logger)

	sweeper := srv.Sweeper()
	scheduler := sweep.NewScheduler(loc, logger.With("component", "scheduler"))
	if _, err := scheduler.ScheduleInterval("status-sweep", cfg.SweepInterval, func(ctx context.Context) error {
		_, err := sweeper.RunStatusSweep(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("schedule status sweep: %w", err)
	}
	if _, err := scheduler.ScheduleDaily("daily-reminder", reminderHour, reminderMinute, func(ctx context.Context) error {
		_, err := sweeper.SendReminders(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := scheduler.ScheduleInterval("cleanup", time.Hour, func(ctx context.Context) error {
		srv.RateLimiter().Cleanup()
		n, err := srv.SessionStore().DeleteExpired()
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("cleaned up expired sessions", "count", n)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	// Close out anything that ended while the server was down.
	if _, err := sweeper.RunStatusSweep(context.Background()); err != nil {
		logger.Error("startup status sweep", "error", err)
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("motiveme listening", "addr", httpServer.Addr, "base_url", cfg.BaseURL, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	scheduler.Stop()
	srv.Notifier().Wait()
	return nil
}
