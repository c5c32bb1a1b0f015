package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/clustering"
)

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().Int64P("clusterization", "z", 0, "Use every cluster of this clusterization")
	cmd.Flags().Int64Slice("clusters", nil, "Use these cluster ids (comma separated)")
	cmd.MarkFlagsMutuallyExclusive("clusterization", "clusters")
}

func scopeFromFlags(ctx context.Context, cmd *cobra.Command, svc *clustering.Service) (clustering.Scope, error) {
	z, _ := cmd.Flags().GetInt64("clusterization")
	ids, _ := cmd.Flags().GetInt64Slice("clusters")

	switch {
	case z != 0:
		return svc.ScopeOf(ctx, z)
	case len(ids) > 0:
		return svc.ScopeFor(ctx, ids)
	}
	return clustering.Scope{}, errors.New("one of --clusterization or --clusters is required")
}
