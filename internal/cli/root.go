// Package cli wires the cobra command surface: run, check, stats, config,
// version.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/prpilot/internal/logging"
)

var (
	flagDebug      bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "prpilot",
	Short: "Turn a task description into a pull request",
	Long: `prpilot runs an automated task-to-PR pipeline against an isolated
worktree of your repository: plan, review, implement, validate, commit.
Budget caps and bounded revision cycles keep every run finite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is the normal case.
		_ = godotenv.Load()
		logging.Init(flagDebug)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config file (default: ./prpilot.yaml, ~/.prpilot/config.yaml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
