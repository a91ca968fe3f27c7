package cli

import (
	"time"

	"github.com/spf13/cobra"

	"adaptive-coach/internal/app"
)

var (
	decideDay    string
	decideDryRun bool
	decideJSON   bool
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Compute, store and print the decision for one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.DecideOptions{
			Day:    time.Now(),
			DryRun: decideDryRun,
			JSON:   decideJSON,
		}
		if decideDay != "" {
			day, err := parseDay("day", decideDay)
			if err != nil {
				return err
			}
			opts.Day = day
		}
		return getApp().Decide(cmd.Context(), opts)
	},
}

func init() {
	decideCmd.Flags().StringVar(&decideDay, "day", "", "Day to decide (YYYY-MM-DD, defaults to today)")
	decideCmd.Flags().BoolVar(&decideDryRun, "dry-run", false, "Do not persist the decision or send alerts")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "Print the full decision as JSON")
}
