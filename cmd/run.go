package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/quotes-crawler/internal/app"
)

// newRunCmd creates the 'run' subcommand: a single crawl, then exit.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Crawl the site once",
		Long: `Crawls every listing page once and exits. The command fails only when
the crawl could not start; problems with individual pages or quotes are
logged and reflected in the run summary.`,
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime) error {
			summary, err := app.New(rt.cfg, rt.logger).RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("crawl could not start: %w", err)
			}
			rt.logger.Info("crawl complete",
				zap.String("run_id", summary.ID),
				zap.String("status", string(summary.Status)),
				zap.String("stop_reason", string(summary.Stats.StopReason)),
				zap.Int("records_persisted", summary.Stats.RecordsPersisted),
				zap.Int("records_failed", summary.Stats.RecordsFailed),
			)
			return nil
		}),
	}
}
