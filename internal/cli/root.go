// Package cli holds the techfinder commands.
package cli

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yoockh/techfinder/config"
	"github.com/yoockh/techfinder/internal/logger"
)

const (
	appName = "techfinder"
)

var (
	// Used for flags.
	envFile string

	rootCmd = &cobra.Command{
		Use:          appName,
		Short:        "techfinder mirrors contractor and recruiter profiles and matches contractors against a filter",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if envFile == "" {
				return nil
			}
			return godotenv.Load(envFile)
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "an extra .env file to load (existing variables win)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")

	if err := viper.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Fatalf("binding --log-level: %v", err)
	}
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Logging.Level), nil
}
