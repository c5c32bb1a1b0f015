package clustering

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/store"
)

// Normalization selects the denominator of the summary ratios.
type Normalization string

const (
	// PerVote divides by the votes the members cast on the comment.
	PerVote Normalization = "votes"
	// PerMember divides by the number of cluster members, voters or not.
	PerMember Normalization = "members"
)

// ErrUnknownNormalization is returned for an unsupported ratio denominator.
var ErrUnknownNormalization = errors.New("unknown normalization")

// ParseNormalization accepts "", "votes" and "members".
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(s) {
	case "", PerVote:
		return PerVote, nil
	case PerMember:
		return PerMember, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNormalization, s)
}

// SummaryOptions configure CommentSummaries.
type SummaryOptions struct {
	// Scale multiplies every ratio, e.g. 100 for percentages. Zero means 1.
	Scale float64
	// Per selects the ratio denominator. Empty means PerVote.
	Per Normalization
}

// CommentSummary counts the votes of one cluster's members on a comment.
type CommentSummary struct {
	CommentID int64   `json:"comment_id"`
	Content   string  `json:"content"`
	Agree     int     `json:"agree"`
	Disagree  int     `json:"disagree"`
	Skip      int     `json:"skip"`
	Total     int     `json:"total"`
	Members   int     `json:"members"`
	AgreeR    float64 `json:"agree_ratio"`
	DisagreeR float64 `json:"disagree_ratio"`
	SkipR     float64 `json:"skip_ratio"`
	// Stereotype is the mean choice of the cluster's stereotypes, nil when
	// none of them agreed or disagreed with the comment.
	Stereotype *float64 `json:"stereotype,omitempty"`
}

// CommentSummaries reports how the members of a cluster voted on each
// comment of its conversation, ordered by comment id, next to the mean
// opinion of the cluster's stereotypes.
func (s *Service) CommentSummaries(ctx context.Context, clusterID int64, opts SummaryOptions) ([]CommentSummary, error) {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	per, err := ParseNormalization(string(opts.Per))
	if err != nil {
		return nil, err
	}

	scope, err := s.ScopeFor(ctx, []int64{clusterID})
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments(ctx, scope.ConversationIDs())
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	members, err := s.Users(ctx, scope)
	if err != nil {
		return nil, err
	}
	means, err := s.ClusterMeanStereotype(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	out := make([]CommentSummary, len(comments))
	idx := make(map[int64]int, len(comments))
	ids := make([]int64, len(comments))
	for i, c := range comments {
		out[i] = CommentSummary{CommentID: c.ID, Content: c.Content, Members: len(members)}
		if m, ok := means[c.ID]; ok {
			out[i].Stereotype = &m
		}
		idx[c.ID] = i
		ids[i] = c.ID
	}
	if len(members) == 0 || len(comments) == 0 {
		return out, nil
	}

	vs, err := s.store.Votes(ctx, store.VoteFilter{CommentIDs: ids, AuthorIDs: members})
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	for _, v := range vs {
		sum := &out[idx[v.CommentID]]
		switch v.Choice {
		case model.Agree:
			sum.Agree++
		case model.Disagree:
			sum.Disagree++
		default:
			sum.Skip++
		}
		sum.Total++
	}
	for i := range out {
		d := float64(out[i].Total)
		if per == PerMember {
			d = float64(out[i].Members)
		}
		if d > 0 {
			out[i].AgreeR = scale * float64(out[i].Agree) / d
			out[i].DisagreeR = scale * float64(out[i].Disagree) / d
			out[i].SkipR = scale * float64(out[i].Skip) / d
		}
	}
	return out, nil
}
