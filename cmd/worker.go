package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/database"
	"github.com/nataliethinks/o2c-integration-hub/internal/dlq"
	"github.com/nataliethinks/o2c-integration-hub/internal/messaging"
	"github.com/nataliethinks/o2c-integration-hub/internal/models"
	"github.com/nataliethinks/o2c-integration-hub/internal/repositories"
	"github.com/nataliethinks/o2c-integration-hub/internal/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the worker that consumes SalesOrderCreated events and loads them into the reporting database`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Storage first: connect with bounded retry and ensure the schema
	// exists before any message can arrive.
	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	if err := models.SetupModels(db); err != nil {
		return err
	}

	// Then the broker, same bounded retry
	queueClient, err := messaging.NewRabbitMQClient(ctx, cfg.Broker)
	if err != nil {
		return err
	}
	defer queueClient.Close()

	// Dead-letter store for undecodable messages
	deadLetters, err := dlq.NewStore(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize dead-letter store, undecodable messages will only be logged")
		deadLetters, _ = dlq.NewStore(config.RedisConfig{Enabled: false})
	}
	defer deadLetters.Close()

	repo := repositories.NewSalesOrderEventRepository(db)
	consumer := services.NewConsumerService(repo, deadLetters)

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Consume until shutdown
	g.Go(func() error {
		log.Info().Str("queue", cfg.Broker.QueueName).Msg("Starting consumer")
		return queueClient.Consume(ctx, consumer)
	})

	// Periodic heartbeat logging reporting-table totals
	g.Go(func() error {
		return runStatsJob(ctx, repo)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

func runStatsJob(ctx context.Context, repo *repositories.SalesOrderEventRepository) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	interval := 5 * time.Minute
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			total, err := repo.Count(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to read reporting totals")
				return
			}
			recent, err := repo.CountSince(ctx, time.Now().Add(-interval).Unix())
			if err != nil {
				log.Error().Err(err).Msg("Failed to read recent reporting totals")
				return
			}
			log.Info().
				Int64("totalEvents", total).
				Int64("lastInterval", recent).
				Msg("Reporting table heartbeat")
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	<-ctx.Done()
	return scheduler.Shutdown()
}
