package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/forum/pkg/prune"
)

func newPruneCommand(load Loader) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete topics older than the auto-delete age now",
		Long: `Run one prune pass immediately instead of waiting for the schedule.

Topics created more than --days days ago are deleted together with their posts.
Without --days the configured FORUM_PRUNE_DAYS is used; a configured age of 0
means pruning is disabled and nothing is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("days") && days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			a, err := openApp(cmd.Context(), load, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			jobLogger := logrus.New()
			jobLogger.SetOutput(cmd.ErrOrStderr())
			jobLogger.SetFormatter(&logrus.JSONFormatter{})

			pruner, err := prune.New(a.svc, a.cfg.PruneSettings(), jobLogger)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("days") {
				days = pruner.AutoDeleteDays()
			}
			if days == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "auto-delete is disabled; nothing to prune")
				return nil
			}

			deleted, err := pruner.RunDays(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d topics older than %d days\n", deleted, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Delete topics older than this many days (default: configured age)")
	return cmd
}
