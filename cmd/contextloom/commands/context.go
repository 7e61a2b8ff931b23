package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davenloft/contextloom/pkg/contextloom/engine"
	"github.com/davenloft/contextloom/pkg/contextloom/tokens"
)

// newContextCmd creates the `contextloom context` command, which prints
// the rendered context bundle for the current project.
func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble and print the project context bundle",
		Long: `Assembles the project context bundle under the configured token
budgets and prints its canonical rendering to stdout.

Context is an enhancement, never a precondition: absent documents are
simply omitted and the command always exits 0, even with an empty
workspace.

Examples:
  contextloom context
  contextloom context --command review
  contextloom context --root ../other-project`,
		RunE: runContext,
	}

	cmd.Flags().StringP("command", "c", "", "workflow command name, selects configured overrides")
	return cmd
}

func runContext(cmd *cobra.Command, _ []string) error {
	root, _ := cmd.Root().PersistentFlags().GetString("root")
	command, _ := cmd.Flags().GetString("command")
	logger := setupLogger(cmd)

	cfg := engine.LoadOrDefault(root, logger)
	assembler := engine.NewAssembler(root, cfg, tokens.Default(), logger)
	lc := assembler.Assemble(command)

	logger.Debug("assembled context bundle",
		"sources", len(lc.Sources),
		"tokens", lc.TotalTokens,
		"truncated", lc.AnyTruncated,
		"active_unit", lc.ActiveUnit)

	fmt.Fprint(cmd.OutOrStdout(), engine.Render(lc))
	return nil
}
