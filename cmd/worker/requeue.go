package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/thinkbank-worker/internal/app"
)

var (
	requeueAllFailed bool
	requeueForce     bool
)

var requeueCmd = &cobra.Command{
	Use:   "requeue [asset-id...]",
	Short: "Reset FAILED assets to PENDING and push them onto the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !requeueAllFailed && len(args) == 0 {
			return errors.New("pass asset ids or --all-failed")
		}
		if requeueAllFailed && len(args) > 0 {
			return errors.New("--all-failed does not take asset ids")
		}
		ids := make([]uuid.UUID, 0, len(args))
		for _, raw := range args {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("asset id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}

		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, log, app.Options{Queue: true})
		if err != nil {
			return err
		}
		defer a.Close()

		var pushed []uuid.UUID
		if requeueAllFailed {
			pushed, err = a.Requeuer.RequeueAllFailed(ctx)
		} else {
			pushed, err = a.Requeuer.Requeue(ctx, ids, requeueForce)
		}
		if err != nil {
			return err
		}
		for _, id := range pushed {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "requeued %d asset(s)\n", len(pushed))
		return nil
	},
}

func init() {
	requeueCmd.Flags().BoolVar(&requeueAllFailed, "all-failed", false, "Requeue every FAILED asset")
	requeueCmd.Flags().BoolVar(&requeueForce, "force", false, "Also requeue assets that are not FAILED")
}
