package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/store/migrations"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zerolog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path and
// applies pending migrations. A nil logger disables logging.
func NewSQLiteStore(dbPath string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		logger:  logger,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSuffix(format, "\n"), v...)
}

func (s *SQLiteStore) migrate() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: s.logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// nullID turns a zero id into NULL so SQLite assigns one.
func nullID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// placeholders returns "?, ?, ..." with n markers and the ids as args.
func placeholders(ids []int64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func insertID(res sql.Result, err error, dst *int64) error {
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	*dst = id
	return nil
}

func insertUser(ctx context.Context, e execer, u *model.User) error {
	res, err := e.ExecContext(ctx, `INSERT INTO users (id, name) VALUES (?, ?)`, nullID(u.ID), u.Name)
	if err := insertID(res, err, &u.ID); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func insertConversation(ctx context.Context, e execer, c *model.Conversation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := e.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at) VALUES (?, ?, ?)`,
		nullID(c.ID), c.Title, formatTime(c.CreatedAt))
	if err := insertID(res, err, &c.ID); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func insertComment(ctx context.Context, e execer, c *model.Comment) error {
	res, err := e.ExecContext(ctx,
		`INSERT INTO comments (id, conversation_id, content) VALUES (?, ?, ?)`,
		nullID(c.ID), c.ConversationID, c.Content)
	if err := insertID(res, err, &c.ID); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func upsertVote(ctx context.Context, e execer, v model.Vote) error {
	if !v.Choice.Valid() {
		return fmt.Errorf("invalid choice %d", int(v.Choice))
	}
	_, err := e.ExecContext(ctx,
		`INSERT INTO votes (author_id, comment_id, choice, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (author_id, comment_id) DO UPDATE SET choice = excluded.choice, updated_at = excluded.updated_at`,
		v.AuthorID, v.CommentID, int(v.Choice), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func insertClusterization(ctx context.Context, e execer, c *model.Clusterization) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := e.ExecContext(ctx,
		`INSERT INTO clusterizations (id, conversation_id, created_at) VALUES (?, ?, ?)`,
		nullID(c.ID), c.ConversationID, formatTime(c.CreatedAt))
	if err := insertID(res, err, &c.ID); err != nil {
		return fmt.Errorf("insert clusterization: %w", err)
	}
	return nil
}

func insertCluster(ctx context.Context, e execer, c *model.Cluster) error {
	res, err := e.ExecContext(ctx,
		`INSERT INTO clusters (id, clusterization_id, name, description) VALUES (?, ?, ?, ?)`,
		nullID(c.ID), c.ClusterizationID, c.Name, c.Description)
	if err := insertID(res, err, &c.ID); err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}
	return nil
}

func insertStereotype(ctx context.Context, e execer, st *model.Stereotype) error {
	res, err := e.ExecContext(ctx,
		`INSERT INTO stereotypes (id, name, description) VALUES (?, ?, ?)`,
		nullID(st.ID), st.Name, st.Description)
	if err := insertID(res, err, &st.ID); err != nil {
		return fmt.Errorf("insert stereotype: %w", err)
	}
	return nil
}

func upsertStereotypeVote(ctx context.Context, e execer, v model.StereotypeVote) error {
	if !v.Choice.Valid() {
		return fmt.Errorf("invalid choice %d", int(v.Choice))
	}
	_, err := e.ExecContext(ctx,
		`INSERT INTO stereotype_votes (stereotype_id, comment_id, choice) VALUES (?, ?, ?)
		 ON CONFLICT (stereotype_id, comment_id) DO UPDATE SET choice = excluded.choice`,
		v.StereotypeID, v.CommentID, int(v.Choice))
	if err != nil {
		return fmt.Errorf("upsert stereotype vote: %w", err)
	}
	return nil
}

func insertClusterStereotype(ctx context.Context, e execer, l model.ClusterStereotype) error {
	_, err := e.ExecContext(ctx,
		`INSERT OR IGNORE INTO cluster_stereotypes (cluster_id, stereotype_id) VALUES (?, ?)`,
		l.ClusterID, l.StereotypeID)
	if err != nil {
		return fmt.Errorf("insert cluster stereotype: %w", err)
	}
	return nil
}

func insertMembership(ctx context.Context, e execer, m model.Membership) error {
	_, err := e.ExecContext(ctx,
		`INSERT OR IGNORE INTO cluster_users (cluster_id, user_id) VALUES (?, ?)`,
		m.ClusterID, m.UserID)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	return insertUser(ctx, s.db, u)
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	return insertConversation(ctx, s.db, c)
}

func (s *SQLiteStore) CreateComment(ctx context.Context, c *model.Comment) error {
	return insertComment(ctx, s.db, c)
}

func (s *SQLiteStore) PutVote(ctx context.Context, v model.Vote) error {
	return upsertVote(ctx, s.db, v)
}

func (s *SQLiteStore) CreateClusterization(ctx context.Context, c *model.Clusterization) error {
	return insertClusterization(ctx, s.db, c)
}

func (s *SQLiteStore) CreateCluster(ctx context.Context, c *model.Cluster) error {
	return insertCluster(ctx, s.db, c)
}

func (s *SQLiteStore) CreateStereotype(ctx context.Context, st *model.Stereotype) error {
	return insertStereotype(ctx, s.db, st)
}

func (s *SQLiteStore) PutStereotypeVote(ctx context.Context, v model.StereotypeVote) error {
	return upsertStereotypeVote(ctx, s.db, v)
}

func (s *SQLiteStore) AddClusterStereotype(ctx context.Context, l model.ClusterStereotype) error {
	return insertClusterStereotype(ctx, s.db, l)
}

// Clusterization returns a clusterization by id, or ErrNotFound.
func (s *SQLiteStore) Clusterization(ctx context.Context, id int64) (*model.Clusterization, error) {
	var c model.Clusterization
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, created_at FROM clusterizations WHERE id = ?`, id).
		Scan(&c.ID, &c.ConversationID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clusterization %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// Clusterizations lists every clusterization ordered by id.
func (s *SQLiteStore) Clusterizations(ctx context.Context) ([]model.Clusterization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, created_at FROM clusterizations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Clusterization
	for rows.Next() {
		var c model.Clusterization
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ConversationID, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

const clusterColumns = `SELECT c.id, c.clusterization_id, z.conversation_id, c.name, c.description
	FROM clusters c JOIN clusterizations z ON z.id = c.clusterization_id`

// Clusters returns the clusters with the given ids ordered by id. Unknown
// ids are skipped.
func (s *SQLiteStore) Clusters(ctx context.Context, ids []int64) ([]model.Cluster, error) {
	var out []model.Cluster
	for _, b := range batches(ids, maxParams) {
		marks, args := placeholders(b)
		cs, err := s.queryClusters(ctx, s.db, clusterColumns+` WHERE c.id IN (`+marks+`) ORDER BY c.id`, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ClustersOf returns the clusters owned by a clusterization ordered by id.
func (s *SQLiteStore) ClustersOf(ctx context.Context, clusterizationID int64) ([]model.Cluster, error) {
	return s.queryClusters(ctx, s.db, clusterColumns+` WHERE c.clusterization_id = ? ORDER BY c.id`, clusterizationID)
}

func (s *SQLiteStore) queryClusters(ctx context.Context, q querier, query string, args ...interface{}) ([]model.Cluster, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Cluster
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.ID, &c.ClusterizationID, &c.ConversationID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Comments returns the comments of the given conversations ordered by id.
func (s *SQLiteStore) Comments(ctx context.Context, conversationIDs []int64) ([]model.Comment, error) {
	var out []model.Comment
	for _, b := range batches(conversationIDs, maxParams) {
		marks, args := placeholders(b)
		if err := s.each(ctx, s.db,
			`SELECT id, conversation_id, content FROM comments
			 WHERE conversation_id IN (`+marks+`) ORDER BY id`,
			func(r scanner) error {
				var c model.Comment
				if err := r.Scan(&c.ID, &c.ConversationID, &c.Content); err != nil {
					return err
				}
				out = append(out, c)
				return nil
			}, args...); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Votes returns user votes matching the filter ordered by author then
// comment. Long id lists are queried in batches.
func (s *SQLiteStore) Votes(ctx context.Context, f VoteFilter) ([]model.Vote, error) {
	var out []model.Vote
	for _, pair := range crossBatches(f.CommentIDs, f.AuthorIDs) {
		var where []string
		var args []interface{}
		if len(pair[0]) > 0 {
			marks, a := placeholders(pair[0])
			where = append(where, "comment_id IN ("+marks+")")
			args = append(args, a...)
		}
		if len(pair[1]) > 0 {
			marks, a := placeholders(pair[1])
			where = append(where, "author_id IN ("+marks+")")
			args = append(args, a...)
		}

		query := `SELECT author_id, comment_id, choice FROM votes`
		if len(where) > 0 {
			query += ` WHERE ` + strings.Join(where, " AND ")
		}
		query += ` ORDER BY author_id, comment_id`

		if err := s.each(ctx, s.db, query, func(r scanner) error {
			var v model.Vote
			if err := r.Scan(&v.AuthorID, &v.CommentID, &v.Choice); err != nil {
				return err
			}
			out = append(out, v)
			return nil
		}, args...); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AuthorID != out[j].AuthorID {
			return out[i].AuthorID < out[j].AuthorID
		}
		return out[i].CommentID < out[j].CommentID
	})
	return out, nil
}

// StereotypeVotes returns the votes of the given stereotypes, optionally
// restricted to commentIDs.
func (s *SQLiteStore) StereotypeVotes(ctx context.Context, stereotypeIDs, commentIDs []int64) ([]model.StereotypeVote, error) {
	if len(stereotypeIDs) == 0 {
		return nil, nil
	}
	var out []model.StereotypeVote
	for _, pair := range crossBatches(commentIDs, stereotypeIDs) {
		marks, args := placeholders(pair[1])
		query := `SELECT stereotype_id, comment_id, choice FROM stereotype_votes WHERE stereotype_id IN (` + marks + `)`
		if len(pair[0]) > 0 {
			cmarks, cargs := placeholders(pair[0])
			query += ` AND comment_id IN (` + cmarks + `)`
			args = append(args, cargs...)
		}
		query += ` ORDER BY stereotype_id, comment_id`

		if err := s.each(ctx, s.db, query, func(r scanner) error {
			var v model.StereotypeVote
			if err := r.Scan(&v.StereotypeID, &v.CommentID, &v.Choice); err != nil {
				return err
			}
			out = append(out, v)
			return nil
		}, args...); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StereotypeID != out[j].StereotypeID {
			return out[i].StereotypeID < out[j].StereotypeID
		}
		return out[i].CommentID < out[j].CommentID
	})
	return out, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
