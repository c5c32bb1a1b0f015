package clustering

import (
	"context"
	"fmt"

	"github.com/rcliao/ejcluster/internal/pipeline"
	"github.com/rcliao/ejcluster/internal/votes"
)

// Result is the outcome of FindClusters.
type Result struct {
	// Mapping assigns every voter row of the table to a cluster id.
	Mapping ByUser
	// Estimator is the fitted pipeline.
	Estimator pipeline.Estimator
	// Table is the table the pipeline was fitted on.
	Table *votes.Table
}

// FindClusters assigns every participant of the scope to one of its
// clusters without writing anything. The table holds all participants and
// one mean stereotype row per cluster; the label the pipeline gives each
// of those exemplar rows names its cluster.
func (s *Service) FindClusters(ctx context.Context, scope Scope, factory pipeline.Factory) (*Result, error) {
	k := scope.Len()
	switch k {
	case 0:
		s.logger.Error().Msg("trying to clusterize empty cluster set")
		return nil, ErrEmptyClusterSet
	case 1:
		s.logger.Warn().
			Int64("clusterization_id", ownerOf(scope)).
			Int("clusters", k).
			Msg("creating clusters for cluster set with a single element")
	}

	table, err := s.VotesTable(ctx, scope, TableOptions{
		Options:        votes.Options{Imputation: s.cfg.Imputation},
		MeanStereotype: true,
		NonClassified:  true,
	})
	if err != nil {
		return nil, err
	}

	est := factory(k)
	labels, err := est.FitPredict(table)
	if err != nil {
		return nil, err
	}
	if len(labels) != table.Len() {
		return nil, fmt.Errorf("pipeline returned %d labels for %d rows", len(labels), table.Len())
	}

	voters := table.Len() - k
	anchors := make(map[int]int64, k)
	for i, row := range table.Tail(k) {
		label := labels[voters+i]
		if prev, ok := anchors[label]; ok {
			s.logger.Warn().
				Int("label", label).
				Int64("cluster_id", prev).
				Int64("replaced_by", row.ID.ID).
				Err(ErrDuplicateAnchorLabel).
				Msg("pipeline gave two exemplars the same label")
		}
		anchors[label] = row.ID.ID
	}

	mapping := make(ByUser, voters)
	for i, row := range table.Rows[:voters] {
		cluster, ok := anchors[labels[i]]
		if !ok {
			return nil, fmt.Errorf("user %d got label %d: %w", row.ID.ID, labels[i], ErrUnanchoredLabel)
		}
		mapping[row.ID.ID] = cluster
	}

	s.logger.Debug().
		Int("clusters", k).
		Int("users", len(mapping)).
		Int("comments", len(table.Columns)).
		Msg("clusters found")

	return &Result{Mapping: mapping, Estimator: est, Table: table}, nil
}

func ownerOf(scope Scope) int64 {
	if scope.Owner != 0 || len(scope.Clusters) == 0 {
		return scope.Owner
	}
	return scope.Clusters[0].ClusterizationID
}
