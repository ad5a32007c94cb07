package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/forum/pkg/config"
)

// Loader returns the configuration the commands run against
type Loader func() (*config.Config, error)

// NewRootCommand creates the forumctl command tree. A nil load reads the
// configuration with config.LoadConfig.
func NewRootCommand(load Loader) *cobra.Command {
	if load == nil {
		load = config.LoadConfig
	}

	var configFile string

	root := &cobra.Command{
		Use:           "forumctl",
		Short:         "Forum operator tool",
		Long:          "forumctl runs maintenance tasks against the forum database: schema migrations, account setup and topic pruning.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("FORUM_CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides FORUM_CONFIG_FILE)")

	root.AddCommand(
		newMigrateCommand(load),
		newCreateUserCommand(load),
		newSetRoleCommand(load),
		newPruneCommand(load),
	)

	return root
}
