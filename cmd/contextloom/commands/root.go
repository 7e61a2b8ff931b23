// Package commands implements the contextloom CLI commands using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contextloom",
		Short: "contextloom - project context bundles for AI workflow commands",
		Long: `contextloom assembles a bounded-size bundle of project background
documents (charter, tech stack, roadmap, specs) for AI-assisted commands.

Examples:
  contextloom context
  contextloom context --command review
  contextloom config --command review`,
		Version: version,
	}

	rootCmd.AddCommand(
		newContextCmd(),
		newConfigCmd(),
	)

	// Global flags.
	rootCmd.PersistentFlags().StringP("root", "r", ".", "project root directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// setupLogger builds the CLI logger from the --verbose flag. Diagnostics
// go to stderr so stdout stays parseable by downstream consumers. The
// .env file is loaded first; existing env vars are never overwritten.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	_ = godotenv.Load()

	level := slog.LevelWarn
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
