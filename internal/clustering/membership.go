package clustering

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/pipeline"
)

// Mapping is a user to cluster assignment that can be written as
// membership links.
type Mapping interface {
	Links() []model.Membership
}

// ByUser maps user id to cluster id.
type ByUser map[int64]int64

// Links returns one link per user, ordered by user id.
func (m ByUser) Links() []model.Membership {
	links := make([]model.Membership, 0, len(m))
	for user, cluster := range m {
		links = append(links, model.Membership{UserID: user, ClusterID: cluster})
	}
	sortLinks(links)
	return links
}

// ByCluster maps cluster id to its member user ids.
type ByCluster map[int64][]int64

// Links flattens the mapping into (user, cluster) links, ordered by user
// then cluster. Repeated users within a cluster collapse to one link.
func (m ByCluster) Links() []model.Membership {
	seen := make(map[model.Membership]bool)
	var links []model.Membership
	for cluster, users := range m {
		for _, user := range users {
			l := model.Membership{UserID: user, ClusterID: cluster}
			if !seen[l] {
				seen[l] = true
				links = append(links, l)
			}
		}
	}
	sortLinks(links)
	return links
}

func sortLinks(links []model.Membership) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].UserID != links[j].UserID {
			return links[i].UserID < links[j].UserID
		}
		return links[i].ClusterID < links[j].ClusterID
	})
}

// UpdateMembership replaces the user links of every cluster in scope with
// the mapping, atomically. Links to clusters outside the scope are
// rejected before anything is written.
func (s *Service) UpdateMembership(ctx context.Context, scope Scope, m Mapping) error {
	if err := scope.CheckUnique(); err != nil {
		return err
	}

	links := m.Links()
	for _, l := range links {
		if !scope.Contains(l.ClusterID) {
			return fmt.Errorf("user %d to cluster %d: %w", l.UserID, l.ClusterID, ErrClusterOutOfScope)
		}
	}

	if err := s.store.ReplaceMembership(ctx, scope.IDs(), links); err != nil {
		return fmt.Errorf("replace membership: %w", err)
	}

	s.logger.Info().
		Int64("clusterization_id", ownerOf(scope)).
		Int("clusters", scope.Len()).
		Int("links", len(links)).
		Msg("membership updated")
	return nil
}

// ClusterizeFromVotes finds clusters and writes the result as the scope's
// membership. Nothing is written when finding fails.
func (s *Service) ClusterizeFromVotes(ctx context.Context, scope Scope, factory pipeline.Factory) (pipeline.Estimator, error) {
	res, err := s.FindClusters(ctx, scope, factory)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateMembership(ctx, scope, res.Mapping); err != nil {
		return nil, err
	}
	return res.Estimator, nil
}
