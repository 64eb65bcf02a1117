package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/quotes-crawler/internal/app"
	"github.com/JakeFAU/quotes-crawler/internal/server"
)

// newScheduleCmd creates the 'schedule' subcommand: the perpetual daily mode.
func newScheduleCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Crawl on the configured schedule until interrupted",
		Long: `Runs a crawl at every activation of schedule.cron (daily at midnight by
default) and serves /healthz, /readyz, /metrics and /v1/runs on
server.port. Runs never overlap.`,
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			srv, err := server.New(rt.cfg, app.New(rt.cfg, rt.logger), rt.logger, server.Options{RunNow: runNow})
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		}),
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "also crawl once immediately at startup")
	return cmd
}
