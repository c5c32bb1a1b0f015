package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/ejcluster/internal/model"
)

// RecordRun stores a clusterization run, assigning a ULID when run.ID is
// empty.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = s.newID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	var finishedAt, errMsg *string
	if run.FinishedAt != nil {
		f := formatTime(*run.FinishedAt)
		finishedAt = &f
	}
	if run.Error != "" {
		errMsg = &run.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clusterization_runs (id, clusterization_id, status, clusters, users, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ClusterizationID, run.Status, run.Clusters, run.Users, errMsg,
		formatTime(run.StartedAt), finishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs lists runs newest first.
func (s *SQLiteStore) Runs(ctx context.Context, f RunFilter) ([]model.Run, error) {
	query := `SELECT id, clusterization_id, status, clusters, users, error, started_at, finished_at
	          FROM clusterization_runs`
	var args []interface{}
	if f.ClusterizationID != 0 {
		query += ` WHERE clusterization_id = ?`
		args = append(args, f.ClusterizationID)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row scanner) (model.Run, error) {
	var r model.Run
	var errMsg, finishedAt sql.NullString
	var startedAt string

	if err := row.Scan(&r.ID, &r.ClusterizationID, &r.Status, &r.Clusters, &r.Users,
		&errMsg, &startedAt, &finishedAt); err != nil {
		return r, err
	}

	r.StartedAt = parseTime(startedAt)
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		r.FinishedAt = &t
	}
	return r, nil
}
