package cli

import (
	"github.com/spf13/cobra"
)

var (
	simulateAsset         string
	simulateTravelPercent float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Push a synthetic position through the alert pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateAsset, simulateTravelPercent)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAsset, "asset", "BTC", "Asset symbol for the synthetic position")
	simulateCmd.Flags().Float64Var(&simulateTravelPercent, "travel-percent", -80, "Travel percent for the synthetic position (negative)")
}
