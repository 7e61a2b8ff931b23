package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davenloft/contextloom/pkg/contextloom/engine"
)

// newConfigCmd creates the `contextloom config` command, which prints
// the effective configuration (built-in defaults merged with the
// project's config document and any command overrides).
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration",
		Long: `Resolves and prints the effective configuration as YAML: built-in
defaults, overlaid with .contextloom/config.yml when present, then with
the named command's overrides.

Examples:
  contextloom config
  contextloom config --command review`,
		RunE: runConfig,
	}

	cmd.Flags().StringP("command", "c", "", "workflow command name, selects configured overrides")
	return cmd
}

func runConfig(cmd *cobra.Command, _ []string) error {
	root, _ := cmd.Root().PersistentFlags().GetString("root")
	command, _ := cmd.Flags().GetString("command")
	logger := setupLogger(cmd)

	cfg := engine.LoadOrDefault(root, logger).Effective(command)
	out, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
