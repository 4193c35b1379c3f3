package cli

import (
	"github.com/spf13/cobra"

	"sonic-alerts/internal/app"
)

var sourcesReset bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Display per-source fetch counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SourcesOptions{
			Reset: sourcesReset,
		}
		return getApp().Sources(cmd.Context(), opts)
	},
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesReset, "reset", false, "Reset counters before displaying")
}
