package cli

import (
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/clustering"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show how the members of a cluster voted on each comment",
		Run:   runSummary,
	}

	cmd.Flags().Int64P("cluster", "c", 0, "Cluster id (required)")
	cmd.Flags().Float64("normalization", 1.0, "Scale factor for the ratios, e.g. 100 for percentages")
	cmd.Flags().String("per", "votes", "Ratio denominator: votes (cast on the comment) or members (of the cluster)")
	cmd.MarkFlagRequired("cluster")

	RootCmd.AddCommand(cmd)
}

func runSummary(cmd *cobra.Command, args []string) {
	cluster, _ := cmd.Flags().GetInt64("cluster")
	norm, _ := cmd.Flags().GetFloat64("normalization")
	perFlag, _ := cmd.Flags().GetString("per")

	per, err := clustering.ParseNormalization(perFlag)
	if err != nil {
		exitErr("summary", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sums, err := newService(s).CommentSummaries(cmd.Context(), cluster, clustering.SummaryOptions{Scale: norm, Per: per})
	if err != nil {
		exitErr("summary", err)
	}
	printOut(sums, func() *table.Table { return summaryTable(sums) })
}
