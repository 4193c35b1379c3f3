package cli

import (
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run a single price aggregation cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RefreshPricesOnce(cmd.Context())
	},
}
