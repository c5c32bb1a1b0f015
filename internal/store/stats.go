package store

import (
	"context"
	"os"

	"github.com/rcliao/ejcluster/internal/model"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string         `json:"db_path"`
	DBSizeBytes     int64          `json:"db_size_bytes"`
	Users           int            `json:"users"`
	Conversations   int            `json:"conversations"`
	Comments        int            `json:"comments"`
	Votes           int            `json:"votes"`
	Clusterizations int            `json:"clusterizations"`
	Stereotypes     int            `json:"stereotypes"`
	Clusters        []ClusterStats `json:"clusters"`
	LastRun         *model.Run     `json:"last_run,omitempty"`
}

// ClusterStats holds per-cluster counts.
type ClusterStats struct {
	ID               int64  `json:"id"`
	ClusterizationID int64  `json:"clusterization_id"`
	Name             string `json:"name"`
	Members          int    `json:"members"`
	Stereotypes      int    `json:"stereotypes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"users", &st.Users},
		{"conversations", &st.Conversations},
		{"comments", &st.Comments},
		{"votes", &st.Votes},
		{"clusterizations", &st.Clusterizations},
		{"stereotypes", &st.Stereotypes},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.clusterization_id, c.name,
		       (SELECT COUNT(*) FROM cluster_users u WHERE u.cluster_id = c.id),
		       (SELECT COUNT(*) FROM cluster_stereotypes s WHERE s.cluster_id = c.id)
		FROM clusters c ORDER BY c.clusterization_id, c.id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs ClusterStats
		if err := rows.Scan(&cs.ID, &cs.ClusterizationID, &cs.Name, &cs.Members, &cs.Stereotypes); err != nil {
			return st, err
		}
		st.Clusters = append(st.Clusters, cs)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	runs, err := s.Runs(ctx, RunFilter{Limit: 1})
	if err != nil {
		return st, err
	}
	if len(runs) > 0 {
		st.LastRun = &runs[0]
	}

	return st, nil
}
