package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/thinkbank-worker/internal/app"
	"github.com/yungbote/thinkbank-worker/internal/observability"
)

var skipMigrate bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Recover stranded assets, then consume the task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		shutdownTracing := observability.InitTracing(ctx, log, observability.TracingConfig{
			Enabled:     cfg.OtelEnabled,
			ServiceName: cfg.OtelServiceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.OtelEndpoint,
			Headers:     cfg.OtelHeaders,
			Insecure:    cfg.OtelInsecure,
			SampleRatio: cfg.OtelSampleRatio,
		})
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = shutdownTracing(sctx)
		}()

		a, err := app.New(ctx, cfg, log, app.Options{Migrate: !skipMigrate, Worker: true})
		if err != nil {
			log.Error("Startup failed", "error", err)
			return err
		}
		defer a.Close()

		log.Info("Worker starting", "worker_id", a.Worker.ID(), "queue", cfg.QueueName, "ops_addr", cfg.OpsAddr)
		if err := a.Run(ctx); err != nil {
			log.Error("Worker stopped with error", "error", err)
			return err
		}
		log.Info("Worker stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on start")
}
