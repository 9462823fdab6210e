package main

import (
	"fmt"

	"github.com/dkeye/voxify/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the tables the relay reads and writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := repository.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer repository.Close(db)

		if err := repository.Migrate(db); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("schema migrated")
		return nil
	},
}
