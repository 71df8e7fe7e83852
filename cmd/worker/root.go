package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/thinkbank-worker/internal/app"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
	"github.com/yungbote/thinkbank-worker/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:           "thinkbank-worker",
	Short:         "Enrich uploaded ThinkBank assets from the Redis task queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(requeueCmd)
	rootCmd.AddCommand(statusCmd)
}

// bootstrap builds the logger from LOG_MODE/LOG_LEVEL and then loads the full
// config, so config errors are logged in the configured format.
func bootstrap() (app.Config, *logger.Logger, error) {
	log, err := logger.New(utils.GetEnv("LOG_MODE", "development", nil), utils.GetEnv("LOG_LEVEL", "info", nil))
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		log.Sync()
		return app.Config{}, nil, err
	}
	return cfg, log, nil
}
