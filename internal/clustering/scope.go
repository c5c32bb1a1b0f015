package clustering

import (
	"fmt"
	"sort"

	"github.com/rcliao/ejcluster/internal/model"
)

// Scope is a set of clusters operated on together.
type Scope struct {
	Clusters []model.Cluster
	// Owner is the clusterization the caller already knows owns every
	// cluster, or 0 when unknown.
	Owner int64
}

// NewScope returns a scope over clusters with no known owner.
func NewScope(clusters ...model.Cluster) Scope {
	return Scope{Clusters: clusters}
}

// Len returns the number of clusters.
func (s Scope) Len() int { return len(s.Clusters) }

// IDs returns the cluster ids in ascending order.
func (s Scope) IDs() []int64 {
	ids := make([]int64, len(s.Clusters))
	for i, c := range s.Clusters {
		ids[i] = c.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Contains reports whether clusterID is part of the scope.
func (s Scope) Contains(clusterID int64) bool {
	for _, c := range s.Clusters {
		if c.ID == clusterID {
			return true
		}
	}
	return false
}

// ConversationIDs returns the distinct conversations of the clusters.
func (s Scope) ConversationIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, c := range s.Clusters {
		if !seen[c.ConversationID] {
			seen[c.ConversationID] = true
			ids = append(ids, c.ConversationID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CheckUnique fails with ErrAmbiguousClusterization unless every cluster
// shares one clusterization. A known owner is trusted when the clusters
// agree with it.
func (s Scope) CheckUnique() error {
	if s.Owner != 0 {
		for _, c := range s.Clusters {
			if c.ClusterizationID != s.Owner {
				return fmt.Errorf("cluster %d belongs to clusterization %d, not %d: %w",
					c.ID, c.ClusterizationID, s.Owner, ErrAmbiguousClusterization)
			}
		}
		return nil
	}

	roots := make(map[int64]bool)
	for _, c := range s.Clusters {
		roots[c.ClusterizationID] = true
	}
	if len(roots) > 1 {
		return fmt.Errorf("%d roots: %w", len(roots), ErrAmbiguousClusterization)
	}
	return nil
}
