// Package store provides the conversation and clustering storage interface
// and its SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/ejcluster/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// VoteFilter selects user votes. Empty slices do not filter.
type VoteFilter struct {
	CommentIDs []int64
	AuthorIDs  []int64
}

// RunFilter selects clusterization runs.
type RunFilter struct {
	ClusterizationID int64 // 0 means all
	Limit            int
}

// ImportResult counts the records written by Import.
type ImportResult struct {
	Users           int `json:"users"`
	Conversations   int `json:"conversations"`
	Comments        int `json:"comments"`
	Votes           int `json:"votes"`
	Clusterizations int `json:"clusterizations"`
	Clusters        int `json:"clusters"`
	Stereotypes     int `json:"stereotypes"`
	StereotypeVotes int `json:"stereotype_votes"`
	Memberships     int `json:"memberships"`
}

// Store defines the storage interface.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	CreateConversation(ctx context.Context, c *model.Conversation) error
	CreateComment(ctx context.Context, c *model.Comment) error
	// PutVote records a vote, replacing any earlier vote by the same author
	// on the same comment.
	PutVote(ctx context.Context, v model.Vote) error
	CreateClusterization(ctx context.Context, c *model.Clusterization) error
	CreateCluster(ctx context.Context, c *model.Cluster) error
	CreateStereotype(ctx context.Context, st *model.Stereotype) error
	PutStereotypeVote(ctx context.Context, v model.StereotypeVote) error
	AddClusterStereotype(ctx context.Context, link model.ClusterStereotype) error

	Clusterization(ctx context.Context, id int64) (*model.Clusterization, error)
	Clusterizations(ctx context.Context) ([]model.Clusterization, error)
	Clusters(ctx context.Context, ids []int64) ([]model.Cluster, error)
	ClustersOf(ctx context.Context, clusterizationID int64) ([]model.Cluster, error)
	Comments(ctx context.Context, conversationIDs []int64) ([]model.Comment, error)
	Votes(ctx context.Context, f VoteFilter) ([]model.Vote, error)
	StereotypeVotes(ctx context.Context, stereotypeIDs, commentIDs []int64) ([]model.StereotypeVote, error)
	Memberships(ctx context.Context, clusterIDs []int64) ([]model.Membership, error)
	ClusterStereotypes(ctx context.Context, clusterIDs []int64) ([]model.ClusterStereotype, error)

	// ReplaceMembership deletes every user link of the given clusters and
	// inserts links in a single transaction.
	ReplaceMembership(ctx context.Context, clusterIDs []int64, links []model.Membership) error

	RecordRun(ctx context.Context, run *model.Run) error
	Runs(ctx context.Context, f RunFilter) ([]model.Run, error)

	Import(ctx context.Context, ds *model.Dataset) (*ImportResult, error)
	Export(ctx context.Context) (*model.Dataset, error)

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
