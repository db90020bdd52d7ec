package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/prpilot/internal/config"
	"github.com/lucasnoah/prpilot/internal/db"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent runs and total spend",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	path, err := db.DefaultDBPath()
	if err != nil {
		return err
	}
	d, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer d.Close()
	if err := d.Migrate(); err != nil {
		return err
	}

	runs, err := d.RecentRuns(statsLimit)
	if err != nil {
		return err
	}
	total, err := d.TotalCost()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-40s %-8s %-8s %s\n", "STARTED", "TITLE", "STATUS", "COST", "RESULT")
	for _, r := range runs {
		title := r.Title
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		result := r.PRURL
		if result == "" {
			result = r.Branch
		}
		started := r.StartedAt
		if len(started) >= 10 {
			started = started[:10]
		}
		fmt.Fprintf(out, "%-10s %-40s %-8s $%-7.2f %s\n", started, title, r.Status, r.CostUSD, result)
	}
	fmt.Fprintf(out, "\nTotal spend: $%.2f across %d run(s)\n", total, len(runs))
	return nil
}

func marshalConfig(cfg *config.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
