package cmd

import (
	"os"
	"strings"

	"example.com/backstage/services/dairy/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Flags
	cfgFile string
	debug   bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "dairy",
		Short: "Dairy delivery ledger",
		Long: `Dairy delivery ledger for small milk businesses.

Functions:
- Record daily deliveries per customer and shift
- Build monthly day-by-customer overviews with totals
- Track daily payments
- Email unpaid-customer reminders on a per-shift schedule`,
		SilenceUsage: true,
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// initConfig points the loader at the --config file
func initConfig() {
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}
}

// loadConfig loads configuration and applies its logging settings
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return config.Config{}, err
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg config.Config) {
	if cfg.Environment == "development" || strings.EqualFold(cfg.Logging.Format, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}
