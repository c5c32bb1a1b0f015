package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/ejcluster/internal/model"
)

// Memberships returns the user links of the given clusters ordered by
// cluster then user.
func (s *SQLiteStore) Memberships(ctx context.Context, clusterIDs []int64) ([]model.Membership, error) {
	var out []model.Membership
	for _, b := range batches(clusterIDs, maxParams) {
		marks, args := placeholders(b)
		if err := s.each(ctx, s.db,
			`SELECT cluster_id, user_id FROM cluster_users
			 WHERE cluster_id IN (`+marks+`) ORDER BY cluster_id, user_id`,
			func(r scanner) error {
				var m model.Membership
				if err := r.Scan(&m.ClusterID, &m.UserID); err != nil {
					return err
				}
				out = append(out, m)
				return nil
			}, args...); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClusterID != out[j].ClusterID {
			return out[i].ClusterID < out[j].ClusterID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// ClusterStereotypes returns the stereotype links of the given clusters
// ordered by cluster then stereotype.
func (s *SQLiteStore) ClusterStereotypes(ctx context.Context, clusterIDs []int64) ([]model.ClusterStereotype, error) {
	var out []model.ClusterStereotype
	for _, b := range batches(clusterIDs, maxParams) {
		marks, args := placeholders(b)
		if err := s.each(ctx, s.db,
			`SELECT cluster_id, stereotype_id FROM cluster_stereotypes
			 WHERE cluster_id IN (`+marks+`) ORDER BY cluster_id, stereotype_id`,
			func(r scanner) error {
				var l model.ClusterStereotype
				if err := r.Scan(&l.ClusterID, &l.StereotypeID); err != nil {
					return err
				}
				out = append(out, l)
				return nil
			}, args...); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClusterID != out[j].ClusterID {
			return out[i].ClusterID < out[j].ClusterID
		}
		return out[i].StereotypeID < out[j].StereotypeID
	})
	return out, nil
}

// ReplaceMembership deletes every user link whose cluster is in clusterIDs
// and inserts links, all in one transaction. Either every change is
// committed or none is.
func (s *SQLiteStore) ReplaceMembership(ctx context.Context, clusterIDs []int64, links []model.Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, b := range batches(clusterIDs, maxParams) {
		marks, args := placeholders(b)
		if _, err := tx.ExecContext(ctx, `DELETE FROM cluster_users WHERE cluster_id IN (`+marks+`)`, args...); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO cluster_users (cluster_id, user_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range links {
		if _, err := stmt.ExecContext(ctx, l.ClusterID, l.UserID); err != nil {
			return fmt.Errorf("insert membership (user %d, cluster %d): %w", l.UserID, l.ClusterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug().
		Int("clusters", len(clusterIDs)).
		Int("links", len(links)).
		Msg("membership replaced")
	return nil
}
