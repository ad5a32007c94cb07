package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), load, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", a.cm.Driver())
			return nil
		},
	}
}
