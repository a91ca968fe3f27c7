package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"adaptive-coach/internal/app"
)

var (
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent decisions and alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Display the stored personal baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowBaseline(cmd.Context())
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 14, "Number of days to display")
}
