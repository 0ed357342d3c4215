package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/dairy/internal/api"
	"example.com/backstage/services/dairy/internal/api/handlers"
	"example.com/backstage/services/dairy/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for deliveries, overviews, payments and reminders`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	health := handlers.NewHealthHandler(func() error { return database.Ping(app.db) }, app.customers, app.notifierErr)
	searchHandler := handlers.NewSearchHandler(nil)
	if app.elastic != nil {
		searchHandler = handlers.NewSearchHandler(app.elastic)
	}

	// Initialize and start the server
	server := api.NewServer(cfg, app.services, health, searchHandler, app.registry, app.metrics, app.tracer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for termination signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
