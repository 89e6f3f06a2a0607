package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/monocle-dev/monocle/db"
	"github.com/monocle-dev/monocle/internal/config"
	"github.com/monocle-dev/monocle/internal/logger"
	"github.com/monocle-dev/monocle/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "monocle",
	Short:         "Monocle check engine",
	Long:          "Runs health probes from the check queue, tracks incidents and sends notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the check consumer and the ops API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [monitor-id...]",
	Short: "Queue an immediate check for one or more monitors",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnqueue,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log.Sugar(), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, sugar, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = sugar.Sync() }()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()

	if err := db.MigrateDatabase(conn); err != nil {
		return err
	}

	sugar.Info("Database migrated successfully")
	return nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, sugar, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = sugar.Sync() }()

	client := queue.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = client.Close() }()

	q := queue.New(client, cfg.QueueName, cfg.JobMaxAttempts, sugar)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	for _, id := range args {
		if err := q.Enqueue(ctx, queue.Job{MonitorID: id}); err != nil {
			return err
		}
		sugar.Infow("Check queued", "monitor_id", id)
	}

	return nil
}
