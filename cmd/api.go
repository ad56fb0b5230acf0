package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/api"
	"github.com/nataliethinks/o2c-integration-hub/internal/auth"
	"github.com/nataliethinks/o2c-integration-hub/internal/messaging"
	"github.com/nataliethinks/o2c-integration-hub/internal/services"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that accepts order payloads and publishes them to the durable queue`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	// Connect to the broker with bounded retry; exhaustion is fatal
	queueClient, err := messaging.NewRabbitMQClient(ctx, cfg.Broker)
	if err != nil {
		return err
	}
	defer queueClient.Close()

	// Initialize services
	authService := auth.NewService(cfg.Auth)
	producer := services.NewProducerService(queueClient)

	// Initialize and start the server
	server := api.NewServer(cfg, producer, authService)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
