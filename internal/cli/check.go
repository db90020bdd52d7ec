package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prpilot/internal/checks"
	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/detect"
	"github.com/lucasnoah/prpilot/internal/gitops"
)

var checkRepo string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Detect project facts and the check baseline without running a task",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkRepo, "repo", "r", ".", "path to the target repository")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, err := detect.Project(checkRepo)
	if err != nil {
		return err
	}
	mgr := gitops.NewManager(&gitops.ExecGit{}, checkRepo, "")
	if !mgr.IsRepo(checkRepo) {
		return fmt.Errorf("%s is not a git repository", checkRepo)
	}
	info.HasRemote = mgr.HasRemote()
	info.CanPush = mgr.CanPush()
	info.DefaultBranch = mgr.DefaultBranch()
	info.Normalize()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project type:    %s\n", info.ProjectType)
	if info.PackageManager != "" {
		fmt.Fprintf(out, "Package manager: %s\n", info.PackageManager)
	}
	fmt.Fprintf(out, "Default branch:  %s\n", info.DefaultBranch)
	fmt.Fprintf(out, "Remote:          %v (pushable: %v)\n", info.HasRemote, info.CanPush)

	timeout, _ := time.ParseDuration(cfg.Agent.CheckTimeout)
	runner := checks.NewRunner(&checks.ExecRunner{}, timeout)
	cmds := checks.Commands{
		Lint:      pick(cfg.Agent.Checks.Lint, info.LintCommand),
		Typecheck: pick(cfg.Agent.Checks.Typecheck, info.TypecheckCommand),
		Unit:      pick(cfg.Agent.Checks.Unit, info.TestCommand),
	}

	fmt.Fprintln(out, "\nBaseline (checks that pass on the clean tree are enforced after changes):")
	baseline, err := runner.DetectBaseline(checkRepo, cmds)
	if err != nil {
		return err
	}
	printBaselineRow(cmd, "lint", cmds.Lint, baseline.RunLint)
	printBaselineRow(cmd, "typecheck", cmds.Typecheck, baseline.RunTypecheck)
	printBaselineRow(cmd, "unit", cmds.Unit, baseline.RunUnit)
	if !baseline.Any() {
		fmt.Fprintln(out, "\nNo category passes at baseline; the test phase would be a no-op.")
	}
	return nil
}

func pick(override, detected string) string {
	if override != "" {
		return override
	}
	return detected
}

func printBaselineRow(cmd *cobra.Command, name, command string, enforced bool) {
	out := cmd.OutOrStdout()
	switch {
	case command == "":
		fmt.Fprintf(out, "  %-10s (not configured)\n", name)
	case enforced:
		fmt.Fprintf(out, "  %-10s enforced   %s\n", name, command)
	default:
		fmt.Fprintf(out, "  %-10s excluded   %s (fails on clean tree)\n", name, command)
	}
}

// configCmd prints the effective configuration after defaults.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printConfigYAML(cmd, cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func printConfigYAML(cmd *cobra.Command, cfg *config.Config) error {
	data, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
