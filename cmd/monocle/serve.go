package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/monocle-dev/monocle/db"
	"github.com/monocle-dev/monocle/internal/auth"
	"github.com/monocle-dev/monocle/internal/handlers"
	"github.com/monocle-dev/monocle/internal/notify"
	"github.com/monocle-dev/monocle/internal/prober"
	"github.com/monocle-dev/monocle/internal/queue"
	"github.com/monocle-dev/monocle/internal/realtime"
	"github.com/monocle-dev/monocle/internal/router"
	"github.com/monocle-dev/monocle/internal/store"
	"github.com/monocle-dev/monocle/internal/worker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, sugar, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = sugar.Sync() }()

	jwt, err := auth.NewJWT(cfg.JWTSecret)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			sugar.Warnw("Failed to close database", "error", err)
		}
	}()

	if err := db.MigrateDatabase(conn); err != nil {
		return err
	}

	client := queue.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = client.Close() }()

	q := queue.New(client, cfg.QueueName, cfg.JobMaxAttempts, sugar)

	if err := q.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	if moved, err := q.RecoverProcessing(ctx); err != nil {
		return err
	} else if moved > 0 {
		sugar.Infow("Recovered unfinished jobs", "count", moved)
	}

	s := store.New(conn)

	var mailer notify.Mailer
	if smtp := cfg.SMTP(); smtp.Configured() {
		mailer = notify.NewSMTPMailer(smtp)
	} else {
		sugar.Warn("SMTP not configured, email channels will fail")
	}

	hub := realtime.NewHub(cfg.Origins(), sugar)

	consumer := worker.NewConsumer(worker.Deps{
		Jobs:        q,
		Store:       s,
		Prober:      prober.New(cfg.ProbeTimeout),
		Notifier:    notify.NewDispatcher(s, mailer, cfg.DeliveryTimeout, sugar),
		Locker:      queue.NewMonitorLocker(client, cfg.QueueName, cfg.LockTTL),
		Broadcaster: hub,
	}, cfg.WorkerConcurrency, sugar)

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	h := handlers.New(s, q, consumer, hub, sugar)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(h, jwt, cfg.Origins(), sugar),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			sugar.Errorw("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("HTTP server shutdown failed", "error", err)
	}

	consumer.Stop()

	sugar.Info("Monocle stopped")
	return nil
}
