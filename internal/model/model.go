// Package model defines the core conversation and clustering data types.
package model

import "time"

// User is a real participant that votes on comments.
type User struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Conversation is a topic whose comments are voted on.
type Conversation struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Comment is a single statement inside a conversation.
type Comment struct {
	ID             int64  `json:"id" yaml:"id"`
	ConversationID int64  `json:"conversation_id" yaml:"conversation_id"`
	Content        string `json:"content" yaml:"content"`
}

// Vote is a user's reaction to a comment. There is at most one vote per
// (author, comment) pair.
type Vote struct {
	AuthorID  int64  `json:"author_id" yaml:"author_id"`
	CommentID int64  `json:"comment_id" yaml:"comment_id"`
	Choice    Choice `json:"choice" yaml:"choice"`
}

// Clusterization is the root grouping of a conversation's voters.
type Clusterization struct {
	ID             int64     `json:"id" yaml:"id"`
	ConversationID int64     `json:"conversation_id" yaml:"conversation_id"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
}

// Cluster is an opinion group owned by exactly one clusterization.
// ConversationID is denormalized from the owning clusterization on reads.
type Cluster struct {
	ID               int64  `json:"id" yaml:"id"`
	ClusterizationID int64  `json:"clusterization_id" yaml:"clusterization_id"`
	ConversationID   int64  `json:"conversation_id,omitempty" yaml:"-"`
	Name             string `json:"name" yaml:"name"`
	Description      string `json:"description,omitempty" yaml:"description"`
}

// Stereotype is a synthetic persona used to seed and anchor clusters.
type Stereotype struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// StereotypeVote has the same shape as Vote, authored by a stereotype.
type StereotypeVote struct {
	StereotypeID int64  `json:"stereotype_id" yaml:"stereotype_id"`
	CommentID    int64  `json:"comment_id" yaml:"comment_id"`
	Choice       Choice `json:"choice" yaml:"choice"`
}

// Membership links a user to a cluster.
type Membership struct {
	UserID    int64 `json:"user_id" yaml:"user_id"`
	ClusterID int64 `json:"cluster_id" yaml:"cluster_id"`
}

// ClusterStereotype links a stereotype to a cluster.
type ClusterStereotype struct {
	ClusterID    int64 `json:"cluster_id" yaml:"cluster_id"`
	StereotypeID int64 `json:"stereotype_id" yaml:"stereotype_id"`
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run records one clusterization attempt.
type Run struct {
	ID               string     `json:"id"`
	ClusterizationID int64      `json:"clusterization_id"`
	Status           string     `json:"status"`
	Clusters         int        `json:"clusters"`
	Users            int        `json:"users"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}
