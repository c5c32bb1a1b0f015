package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rcliao/ejcluster/internal/model"
)

// Export returns the whole database as a dataset. All reads share one
// read-only transaction, so the dataset is a single snapshot.
func (s *SQLiteStore) Export(ctx context.Context) (*model.Dataset, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ds := &model.Dataset{}

	if err := s.each(ctx, tx, `SELECT id, name FROM users ORDER BY id`, func(r scanner) error {
		var u model.User
		if err := r.Scan(&u.ID, &u.Name); err != nil {
			return err
		}
		ds.Users = append(ds.Users, u)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT id, title, created_at FROM conversations ORDER BY id`, func(r scanner) error {
		var c model.Conversation
		var createdAt string
		if err := r.Scan(&c.ID, &c.Title, &createdAt); err != nil {
			return err
		}
		c.CreatedAt = parseTime(createdAt)
		ds.Conversations = append(ds.Conversations, c)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export conversations: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT id, conversation_id, content FROM comments ORDER BY id`, func(r scanner) error {
		var c model.Comment
		if err := r.Scan(&c.ID, &c.ConversationID, &c.Content); err != nil {
			return err
		}
		ds.Comments = append(ds.Comments, c)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export comments: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT author_id, comment_id, choice FROM votes ORDER BY author_id, comment_id`, func(r scanner) error {
		var v model.Vote
		if err := r.Scan(&v.AuthorID, &v.CommentID, &v.Choice); err != nil {
			return err
		}
		ds.Votes = append(ds.Votes, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export votes: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT id, conversation_id, created_at FROM clusterizations ORDER BY id`, func(r scanner) error {
		var z model.Clusterization
		var createdAt string
		if err := r.Scan(&z.ID, &z.ConversationID, &createdAt); err != nil {
			return err
		}
		z.CreatedAt = parseTime(createdAt)
		ds.Clusterizations = append(ds.Clusterizations, z)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export clusterizations: %w", err)
	}

	ds.Clusters, err = s.queryClusters(ctx, tx, clusterColumns+` ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("export clusters: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT id, name, description FROM stereotypes ORDER BY id`, func(r scanner) error {
		var st model.Stereotype
		if err := r.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return err
		}
		ds.Stereotypes = append(ds.Stereotypes, st)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export stereotypes: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT stereotype_id, comment_id, choice FROM stereotype_votes ORDER BY stereotype_id, comment_id`, func(r scanner) error {
		var v model.StereotypeVote
		if err := r.Scan(&v.StereotypeID, &v.CommentID, &v.Choice); err != nil {
			return err
		}
		ds.StereotypeVotes = append(ds.StereotypeVotes, v)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export stereotype votes: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT cluster_id, stereotype_id FROM cluster_stereotypes ORDER BY cluster_id, stereotype_id`, func(r scanner) error {
		var l model.ClusterStereotype
		if err := r.Scan(&l.ClusterID, &l.StereotypeID); err != nil {
			return err
		}
		ds.ClusterStereotypes = append(ds.ClusterStereotypes, l)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export cluster stereotypes: %w", err)
	}

	if err := s.each(ctx, tx, `SELECT cluster_id, user_id FROM cluster_users ORDER BY cluster_id, user_id`, func(r scanner) error {
		var m model.Membership
		if err := r.Scan(&m.ClusterID, &m.UserID); err != nil {
			return err
		}
		ds.Memberships = append(ds.Memberships, m)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("export memberships: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ds, nil
}

// each runs query on q and calls fn once per row.
func (s *SQLiteStore) each(ctx context.Context, q querier, query string, fn func(scanner) error, args ...interface{}) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Import writes a dataset in one transaction, parents before children.
// Records keep their ids; a record with id 0 gets a fresh one. Votes are
// upserted, so importing the same dataset twice fails only on the
// id-carrying records.
func (s *SQLiteStore) Import(ctx context.Context, ds *model.Dataset) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res := &ImportResult{}
	for i := range ds.Users {
		if err := insertUser(ctx, tx, &ds.Users[i]); err != nil {
			return nil, err
		}
		res.Users++
	}
	for i := range ds.Conversations {
		if err := insertConversation(ctx, tx, &ds.Conversations[i]); err != nil {
			return nil, err
		}
		res.Conversations++
	}
	for i := range ds.Comments {
		if err := insertComment(ctx, tx, &ds.Comments[i]); err != nil {
			return nil, err
		}
		res.Comments++
	}
	for _, v := range ds.Votes {
		if err := upsertVote(ctx, tx, v); err != nil {
			return nil, err
		}
		res.Votes++
	}
	for i := range ds.Clusterizations {
		if err := insertClusterization(ctx, tx, &ds.Clusterizations[i]); err != nil {
			return nil, err
		}
		res.Clusterizations++
	}
	for i := range ds.Clusters {
		if err := insertCluster(ctx, tx, &ds.Clusters[i]); err != nil {
			return nil, err
		}
		res.Clusters++
	}
	for i := range ds.Stereotypes {
		if err := insertStereotype(ctx, tx, &ds.Stereotypes[i]); err != nil {
			return nil, err
		}
		res.Stereotypes++
	}
	for _, v := range ds.StereotypeVotes {
		if err := upsertStereotypeVote(ctx, tx, v); err != nil {
			return nil, err
		}
		res.StereotypeVotes++
	}
	for _, l := range ds.ClusterStereotypes {
		if err := insertClusterStereotype(ctx, tx, l); err != nil {
			return nil, err
		}
	}
	for _, m := range ds.Memberships {
		if err := insertMembership(ctx, tx, m); err != nil {
			return nil, err
		}
		res.Memberships++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info().Interface("imported", res).Msg("dataset imported")
	return res, nil
}
