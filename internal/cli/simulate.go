package cli

import (
	"github.com/spf13/cobra"
)

var simulateKind string

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run a decision over synthetic data and send the resulting alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateKind)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateKind, "kind", "recovery", "Alert to provoke: illness or recovery")
}
