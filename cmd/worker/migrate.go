package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/thinkbank-worker/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the vector extension, tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		a, err := app.New(context.Background(), cfg, log, app.Options{Migrate: true})
		if err != nil {
			log.Error("Migration failed", "error", err)
			return err
		}
		defer a.Close()
		log.Info("Database migrated")
		return nil
	},
}
