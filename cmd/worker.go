package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the reminder worker",
	Long:  `Start the background worker that evaluates unpaid reminders once per minute`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.Reminders.Enabled {
		log.Warn().Msg("Reminders are disabled, worker has nothing to do")
		return nil
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

	if app.notifierErr != nil {
		return errors.Wrap(app.notifierErr, "reminders are enabled but email is not configured")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	reminders := app.services.Reminders

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("timezone", loc.String()).Msg("Starting reminder scheduler")

		// Create a scheduler
		scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
		if err != nil {
			return err
		}

		// Every minute; a slow tick delays the next one instead of overlapping it
		_, err = scheduler.NewJob(
			gocron.CronJob("* * * * *", false),
			gocron.NewTask(func() {
				// a dispatch that has claimed its slot runs to completion
				tickCtx := context.WithoutCancel(ctx)
				results, err := reminders.Tick(tickCtx)
				if err != nil {
					log.Error().Err(err).Msg("Reminder tick failed")
					return
				}
				if len(results) > 0 {
					log.Info().Int("dispatched", len(results)).Msg("Reminder tick finished")
				}
			}),
			gocron.WithName("unpaid-reminders"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		// Start the scheduler
		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		// Shutdown the scheduler
		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
