package cli

import (
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Compute cluster assignments without writing them",
		Run:   runFind,
	}

	addScopeFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

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

	res, err := svc.FindClusters(ctx, scope, pipelineFactory())
	if err != nil {
		exitErr("find clusters", err)
	}

	links := res.Mapping.Links()
	printOut(links, func() *table.Table { return membershipTable(links) })
}
