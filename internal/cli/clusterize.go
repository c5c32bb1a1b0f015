package cli

import (
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clusterize",
		Short: "Compute cluster assignments and replace the stored membership",
		Long: "With --clusterization the attempt is recorded in the run log. " +
			"With --clusters the membership of exactly those clusters is replaced.",
		Run: runClusterize,
	}

	addScopeFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runClusterize(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	z, _ := cmd.Flags().GetInt64("clusterization")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := newService(s)

	if z != 0 {
		run, err := svc.Run(ctx, z, pipelineFactory())
		if err != nil {
			exitErr("clusterize", err)
		}
		printOut(run, func() *table.Table { return runsTable([]model.Run{*run}) })
		return
	}

	scope, err := scopeFromFlags(ctx, cmd, svc)
	if err != nil {
		exitErr("scope", err)
	}
	if _, err := svc.ClusterizeFromVotes(ctx, scope, pipelineFactory()); err != nil {
		exitErr("clusterize", err)
	}

	members, err := s.Memberships(ctx, scope.IDs())
	if err != nil {
		exitErr("load memberships", err)
	}
	printOut(members, func() *table.Table { return membershipTable(members) })
}
