package cmd

import (
	"example.com/backstage/services/dairy/internal/database"
	"example.com/backstage/services/dairy/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, readOnlyDB, err := database.Connect(cfg.DB, nil)
	if err != nil {
		return err
	}
	defer database.Close(db, readOnlyDB)

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
