package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yungbote/thinkbank-worker/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print asset counts by status and the queue length",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		st, err := a.Status(ctx)
		if err != nil {
			return err
		}

		statuses := make([]string, 0, len(st.ByStatus))
		for s := range st.ByStatus {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tASSETS")
		for _, s := range statuses {
			fmt.Fprintf(tw, "%s\t%d\n", s, st.ByStatus[s])
		}
		fmt.Fprintf(tw, "queue %s\t%d\n", st.QueueName, st.QueueLength)
		return tw.Flush()
	},
}
