package cli

import (
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List clusterization runs, newest first",
		Run:   runRuns,
	}

	cmd.Flags().Int64P("clusterization", "z", 0, "Only runs of this clusterization")
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs")

	RootCmd.AddCommand(cmd)
}

func runRuns(cmd *cobra.Command, args []string) {
	z, _ := cmd.Flags().GetInt64("clusterization")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	runs, err := s.Runs(cmd.Context(), store.RunFilter{ClusterizationID: z, Limit: limit})
	if err != nil {
		exitErr("list runs", err)
	}
	printOut(runs, func() *table.Table { return runsTable(runs) })
}
