package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/clustering"
	"github.com/rcliao/ejcluster/internal/votes"
)

func init() {
	cmd := &cobra.Command{
		Use:   "votes-table",
		Short: "Write the vote table of a cluster set as CSV",
		Long: "Rows are voters followed by stereotype exemplars, columns are comments. " +
			"Without --kind-col exemplar rows are indexed by negated ids.",
		Run: runVotesTable,
	}

	addScopeFlags(cmd)
	cmd.Flags().String("imputation", "", "Missing value imputation: none or mean (default from config)")
	cmd.Flags().String("cluster-col", "cluster", "Name of the cluster column, empty to disable")
	cmd.Flags().String("kind-col", "", "Name of a boolean user/stereotype column, replaces negative indices")
	cmd.Flags().Bool("mean-stereotype", false, "Use one mean stereotype row per cluster")
	cmd.Flags().Bool("non-classified", false, "Include every participant, not only cluster members")
	cmd.Flags().Bool("no-check-unique", false, "Allow clusters from more than one clusterization")
	cmd.Flags().Bool("means-only", false, "Write only the per-cluster mean stereotype table")

	RootCmd.AddCommand(cmd)
}

func runVotesTable(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	imp, _ := cmd.Flags().GetString("imputation")
	clusterCol, _ := cmd.Flags().GetString("cluster-col")
	kindCol, _ := cmd.Flags().GetString("kind-col")
	meanStereotype, _ := cmd.Flags().GetBool("mean-stereotype")
	nonClassified, _ := cmd.Flags().GetBool("non-classified")
	noCheck, _ := cmd.Flags().GetBool("no-check-unique")
	meansOnly, _ := cmd.Flags().GetBool("means-only")

	method := resolved.Config.Imputation
	if imp != "" {
		m, err := votes.ParseImputation(imp)
		if err != nil {
			exitErr("imputation", err)
		}
		method = m
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := newService(s)
	scope, err := scopeFromFlags(ctx, cmd, svc)
	if err != nil {
		exitErr("scope", err)
	}

	var table *votes.Table
	if meansOnly {
		table, err = svc.MeanStereotypesTable(ctx, scope, method)
	} else {
		table, err = svc.VotesTable(ctx, scope, clustering.TableOptions{
			Options: votes.Options{
				Imputation: method,
				ClusterCol: clusterCol,
				KindCol:    kindCol,
			},
			MeanStereotype:  meanStereotype,
			NonClassified:   nonClassified,
			SkipUniqueCheck: noCheck,
		})
	}
	if err != nil {
		exitErr("votes table", err)
	}

	if err := table.WriteCSV(os.Stdout); err != nil {
		exitErr("write csv", err)
	}
}
