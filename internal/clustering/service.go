// Package clustering builds vote tables for a set of opinion clusters, runs
// a clustering pipeline over them, and keeps the persisted cluster
// membership in sync with the result.
package clustering

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/store"
	"github.com/rcliao/ejcluster/internal/votes"
)

// Store is the persistence the service reads from and writes to.
type Store interface {
	Clusterization(ctx context.Context, id int64) (*model.Clusterization, error)
	Clusters(ctx context.Context, ids []int64) ([]model.Cluster, error)
	ClustersOf(ctx context.Context, clusterizationID int64) ([]model.Cluster, error)
	Comments(ctx context.Context, conversationIDs []int64) ([]model.Comment, error)
	Votes(ctx context.Context, f store.VoteFilter) ([]model.Vote, error)
	StereotypeVotes(ctx context.Context, stereotypeIDs, commentIDs []int64) ([]model.StereotypeVote, error)
	Memberships(ctx context.Context, clusterIDs []int64) ([]model.Membership, error)
	ClusterStereotypes(ctx context.Context, clusterIDs []int64) ([]model.ClusterStereotype, error)
	ReplaceMembership(ctx context.Context, clusterIDs []int64, links []model.Membership) error
	RecordRun(ctx context.Context, run *model.Run) error
}

// Config holds service settings.
type Config struct {
	// Imputation is applied to the tables built for FindClusters.
	Imputation votes.Imputation
}

// Service runs clusterization operations against a Store.
type Service struct {
	store  Store
	cfg    Config
	logger *zerolog.Logger
	now    func() time.Time
}

// NewService creates a service. A nil logger disables logging.
func NewService(st Store, cfg Config, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{store: st, cfg: cfg, logger: logger, now: time.Now}
}

// ScopeOf returns every cluster of a clusterization, with the
// clusterization as the known owner.
func (s *Service) ScopeOf(ctx context.Context, clusterizationID int64) (Scope, error) {
	if _, err := s.store.Clusterization(ctx, clusterizationID); err != nil {
		return Scope{}, err
	}
	clusters, err := s.store.ClustersOf(ctx, clusterizationID)
	if err != nil {
		return Scope{}, fmt.Errorf("load clusters: %w", err)
	}
	return Scope{Clusters: clusters, Owner: clusterizationID}, nil
}

// ScopeFor loads the clusters with the given ids. The owner is unknown.
func (s *Service) ScopeFor(ctx context.Context, clusterIDs []int64) (Scope, error) {
	clusters, err := s.store.Clusters(ctx, clusterIDs)
	if err != nil {
		return Scope{}, fmt.Errorf("load clusters: %w", err)
	}
	if len(clusters) != len(distinct(clusterIDs)) {
		return Scope{}, fmt.Errorf("clusters %v: %w", clusterIDs, store.ErrNotFound)
	}
	return NewScope(clusters...), nil
}

// TableOptions configure VotesTable. The zero value builds a table of
// classified users and one exemplar row per stereotype, with the
// single-root check enabled.
type TableOptions struct {
	votes.Options
	// MeanStereotype replaces stereotype rows with one mean row per cluster.
	MeanStereotype bool
	// NonClassified includes every participant of the scope's
	// conversations, not only cluster members.
	NonClassified bool
	// SkipUniqueCheck disables the single-root check.
	SkipUniqueCheck bool
}

// VotesTable builds the voter-by-comment table of a scope: user rows first,
// then exemplar rows, then imputation over the combined table.
func (s *Service) VotesTable(ctx context.Context, scope Scope, opts TableOptions) (*votes.Table, error) {
	if !opts.SkipUniqueCheck {
		if err := scope.CheckUnique(); err != nil {
			return nil, err
		}
	}

	columns, err := s.columns(ctx, scope)
	if err != nil {
		return nil, err
	}

	var exemplars []votes.Row
	if opts.MeanStereotype {
		exemplars, err = s.meanRows(ctx, scope, columns)
	} else {
		exemplars, err = s.stereotypeRows(ctx, scope, columns)
	}
	if err != nil {
		return nil, err
	}

	users, err := s.userRows(ctx, scope, columns, opts.NonClassified)
	if err != nil {
		return nil, err
	}

	return votes.Assemble(columns, users, exemplars, opts.Options)
}

// MeanStereotypesTable returns one row per cluster holding the mean vote of
// its stereotypes.
func (s *Service) MeanStereotypesTable(ctx context.Context, scope Scope, method votes.Imputation) (*votes.Table, error) {
	columns, err := s.columns(ctx, scope)
	if err != nil {
		return nil, err
	}
	rows, err := s.meanRows(ctx, scope, columns)
	if err != nil {
		return nil, err
	}
	return votes.Assemble(columns, nil, rows, votes.Options{Imputation: method})
}

// ClusterMeanStereotype returns the mean stereotype choice per comment for
// one cluster. The map is empty when its stereotypes never voted.
func (s *Service) ClusterMeanStereotype(ctx context.Context, clusterID int64) (map[int64]float64, error) {
	owners, err := s.store.ClusterStereotypes(ctx, []int64{clusterID})
	if err != nil {
		return nil, fmt.Errorf("load stereotypes: %w", err)
	}
	sv, err := s.store.StereotypeVotes(ctx, stereotypeIDs(owners), nil)
	if err != nil {
		return nil, fmt.Errorf("load stereotype votes: %w", err)
	}
	return votes.CommentMeans(sv), nil
}

// Users returns the ids of users explicitly placed in the scope's clusters.
func (s *Service) Users(ctx context.Context, scope Scope) ([]int64, error) {
	members, err := s.store.Memberships(ctx, scope.IDs())
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return distinct(ids), nil
}

// Participants returns the ids of every user that voted in the scope's
// conversations, clustered or not.
func (s *Service) Participants(ctx context.Context, scope Scope) ([]int64, error) {
	columns, err := s.columns(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}
	vs, err := s.store.Votes(ctx, store.VoteFilter{CommentIDs: columns})
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	ids := make([]int64, len(vs))
	for i, v := range vs {
		ids[i] = v.AuthorID
	}
	return distinct(ids), nil
}

// CreateWithStereotypes would create a cluster seeded with stereotypes. It
// is not supported.
func (s *Service) CreateWithStereotypes(ctx context.Context, name string, stereotypes []model.Stereotype, comments []model.Comment) (*model.Cluster, error) {
	return nil, fmt.Errorf("create cluster %q with stereotypes: %w", name, ErrNotImplemented)
}

// columns returns the comment ids of the scope's conversations.
func (s *Service) columns(ctx context.Context, scope Scope) ([]int64, error) {
	comments, err := s.store.Comments(ctx, scope.ConversationIDs())
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return votes.SortedColumns(comments), nil
}

func (s *Service) stereotypeRows(ctx context.Context, scope Scope, columns []int64) ([]votes.Row, error) {
	owners, err := s.store.ClusterStereotypes(ctx, scope.IDs())
	if err != nil {
		return nil, fmt.Errorf("load stereotypes: %w", err)
	}
	if len(columns) == 0 || len(owners) == 0 {
		return nil, nil
	}
	sv, err := s.store.StereotypeVotes(ctx, stereotypeIDs(owners), columns)
	if err != nil {
		return nil, fmt.Errorf("load stereotype votes: %w", err)
	}
	return votes.StereotypeRows(columns, sv, owners), nil
}

func (s *Service) meanRows(ctx context.Context, scope Scope, columns []int64) ([]votes.Row, error) {
	owners, err := s.store.ClusterStereotypes(ctx, scope.IDs())
	if err != nil {
		return nil, fmt.Errorf("load stereotypes: %w", err)
	}
	var sv []model.StereotypeVote
	if len(columns) > 0 && len(owners) > 0 {
		sv, err = s.store.StereotypeVotes(ctx, stereotypeIDs(owners), columns)
		if err != nil {
			return nil, fmt.Errorf("load stereotype votes: %w", err)
		}
	}
	return votes.MeanRows(columns, scope.IDs(), sv, owners)
}

func (s *Service) userRows(ctx context.Context, scope Scope, columns []int64, nonClassified bool) ([]votes.Row, error) {
	members, err := s.store.Memberships(ctx, scope.IDs())
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	if len(columns) == 0 {
		return nil, nil
	}

	filter := store.VoteFilter{CommentIDs: columns}
	if !nonClassified {
		if len(members) == 0 {
			return nil, nil
		}
		for _, m := range members {
			filter.AuthorIDs = append(filter.AuthorIDs, m.UserID)
		}
		filter.AuthorIDs = distinct(filter.AuthorIDs)
	}

	vs, err := s.store.Votes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	return votes.UserRows(columns, vs, votes.LowestCluster(members)), nil
}

func stereotypeIDs(owners []model.ClusterStereotype) []int64 {
	ids := make([]int64, len(owners))
	for i, o := range owners {
		ids[i] = o.StereotypeID
	}
	return distinct(ids)
}

// distinct returns the sorted unique values of ids.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
