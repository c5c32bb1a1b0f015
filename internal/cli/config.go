package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and where each value came from",
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(resolved)
		},
	}

	RootCmd.AddCommand(cmd)
}
