package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/prpilot/internal/agent"
	"github.com/lucasnoah/prpilot/internal/artifacts"
	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/db"
	"github.com/lucasnoah/prpilot/internal/orchestrator"
	"github.com/lucasnoah/prpilot/internal/task"

	gh "github.com/lucasnoah/prpilot/internal/github"
)

var (
	flagRepo           string
	flagDescription    string
	flagDescFile       string
	flagBudget         float64
	flagDraftOnFail    bool
	flagSkipPlanReview bool
	flagSkipCodeReview bool
	flagSkipTests      bool
)

var runCmd = &cobra.Command{
	Use:   "run <title>",
	Short: "Run the task-to-PR pipeline for one task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&flagRepo, "repo", "r", ".", "path to the target repository")
	runCmd.Flags().StringVarP(&flagDescription, "description", "d", "", "task description")
	runCmd.Flags().StringVar(&flagDescFile, "description-file", "", "read the task description from a file")
	runCmd.Flags().Float64Var(&flagBudget, "budget", 0, "override the max budget in USD")
	runCmd.Flags().BoolVar(&flagDraftOnFail, "draft-on-fail", false, "open a draft PR with partial work when the run fails")
	runCmd.Flags().BoolVar(&flagSkipPlanReview, "skip-plan-review", false, "skip the plan review loop")
	runCmd.Flags().BoolVar(&flagSkipCodeReview, "skip-code-review", false, "skip the code review loop")
	runCmd.Flags().BoolVar(&flagSkipTests, "skip-tests", false, "skip baseline detection and the test loop")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg.Agent)

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Msg(e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	desc := flagDescription
	if flagDescFile != "" {
		data, err := os.ReadFile(flagDescFile)
		if err != nil {
			return fmt.Errorf("read description file: %w", err)
		}
		desc = string(data)
	}

	t, err := task.New(strings.Join(args, " "), desc, flagRepo)
	if err != nil {
		return err
	}

	store, err := artifacts.DefaultStore()
	if err != nil {
		return err
	}

	events := openEvents()
	if events != nil {
		defer events.Close()
	}

	orch := orchestrator.New(cfg.Agent, orchestrator.Deps{
		Agent:  agent.NewClaudeRunner(""),
		GitHub: gh.NewClient(&gh.ExecRunner{}),
		Store:  store,
		Events: events,
	})

	res, _ := orch.Run(cmd.Context(), t)
	printResult(cmd, res)
	if res.Status == orchestrator.StatusFailed {
		return fmt.Errorf("run failed: %s", res.Summary)
	}
	return nil
}

// applyRunFlags layers explicitly-set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, a *config.Agent) {
	if cmd.Flags().Changed("budget") {
		a.MaxBudgetUSD = flagBudget
	}
	if cmd.Flags().Changed("draft-on-fail") {
		a.DraftPROnFail = flagDraftOnFail
	}
	if flagSkipPlanReview {
		a.SkipPlanReview = true
	}
	if flagSkipCodeReview {
		a.SkipCodeReview = true
	}
	if flagSkipTests {
		a.SkipTests = true
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath != "" {
		return config.Load(flagConfigPath)
	}
	return config.LoadDefault()
}

// openEvents opens the SQLite event log. The pipeline runs without it when
// the database is unavailable.
func openEvents() *db.DB {
	path, err := db.DefaultDBPath()
	if err != nil {
		log.Warn().Err(err).Msg("event log disabled")
		return nil
	}
	d, err := db.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("event log disabled")
		return nil
	}
	if err := d.Migrate(); err != nil {
		log.Warn().Err(err).Msg("event log disabled")
		d.Close()
		return nil
	}
	return d
}

func printResult(cmd *cobra.Command, res *orchestrator.FinalResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nStatus:   %s\n", res.Status)
	fmt.Fprintf(out, "Cost:     $%.2f\n", res.CostUSD)
	fmt.Fprintf(out, "Duration: %.1fs\n", float64(res.DurationMs)/1000)
	if res.PRURL != "" {
		fmt.Fprintf(out, "PR:       %s\n", res.PRURL)
	} else if res.Branch != "" {
		fmt.Fprintf(out, "Branch:   %s\n", res.Branch)
	}
	fmt.Fprintf(out, "Summary:  %s\n", res.Summary)
}
