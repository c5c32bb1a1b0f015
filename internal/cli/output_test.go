package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ejcluster/internal/clustering"
	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/store"
)

func TestCheckFormat(t *testing.T) {
	require.NoError(t, checkFormat("json"))
	require.NoError(t, checkFormat("text"))
	assert.Error(t, checkFormat("yaml"))
}

func TestMembershipTable(t *testing.T) {
	out := membershipTable([]model.Membership{
		{UserID: 7, ClusterID: 31},
		{UserID: 8, ClusterID: 42},
	}).String()

	assert.Contains(t, out, "cluster")
	assert.Contains(t, out, "31")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "8")
}

func TestRunsTable(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	done := start.Add(1500 * time.Millisecond)
	out := runsTable([]model.Run{{
		ID:               "01RUN",
		ClusterizationID: 3,
		Status:           model.RunFailed,
		StartedAt:        start,
		FinishedAt:       &done,
		Error:            "empty cluster set",
	}}).String()

	assert.Contains(t, out, "01RUN")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "empty cluster set")
}

func TestSummaryTable(t *testing.T) {
	mean := -0.5
	out := summaryTable([]clustering.CommentSummary{
		{CommentID: 1, Content: "more trees", Agree: 2, Total: 2, AgreeR: 1},
		{CommentID: 2, Content: "more parking", Stereotype: &mean},
	}).String()

	assert.Contains(t, out, "more trees")
	assert.Contains(t, out, "1.00")
	assert.Contains(t, out, "-0.50")
}

func TestStatsTable(t *testing.T) {
	out := statsTable(&store.Stats{
		Users: 12,
		Clusters: []store.ClusterStats{
			{ID: 5, ClusterizationID: 1, Name: "green", Members: 9, Stereotypes: 2},
		},
	}).String()

	assert.Contains(t, out, "12")
	assert.Contains(t, out, `"green"`)
	assert.Contains(t, out, "9 members, 2 stereotypes")
}
