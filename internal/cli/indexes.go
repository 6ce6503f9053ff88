package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoockh/techfinder/config"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create MongoDB indexes and, with FAVORITES_BACKEND=postgres, the favorites table",
	RunE:  runIndexes,
}

func init() {
	rootCmd.AddCommand(indexesCmd)
}

func runIndexes(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.InitMongo(cfg.Mongo); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer config.CloseMongo(cmd.Context())

	if err := config.EnsureMongoIndexes(cfg.Mongo.DB); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	log.WithField("db", cfg.Mongo.DB).Info("mongo indexes ensured")

	if cfg.Favorites.Backend != config.FavoritesPostgres {
		return nil
	}
	if err := config.InitPostgres(cfg.Postgres); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := config.MigratePostgres(); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	log.Info("favorites table migrated")
	return nil
}
