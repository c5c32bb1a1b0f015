package votes

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ejcluster/internal/model"
)

var testColumns = []int64{10, 20, 30}

func testUserVotes() []model.Vote {
	return []model.Vote{
		{AuthorID: 2, CommentID: 10, Choice: model.Agree},
		{AuthorID: 2, CommentID: 20, Choice: model.Skip},
		{AuthorID: 1, CommentID: 10, Choice: model.Disagree},
		{AuthorID: 1, CommentID: 30, Choice: model.Agree},
		{AuthorID: 3, CommentID: 99, Choice: model.Agree}, // outside columns
	}
}

func testStereotypeVotes() []model.StereotypeVote {
	return []model.StereotypeVote{
		{StereotypeID: 1, CommentID: 10, Choice: model.Agree},
		{StereotypeID: 1, CommentID: 20, Choice: model.Disagree},
		{StereotypeID: 2, CommentID: 10, Choice: model.Disagree},
		{StereotypeID: 2, CommentID: 20, Choice: model.Agree},
		{StereotypeID: 3, CommentID: 10, Choice: model.Agree},
		{StereotypeID: 3, CommentID: 20, Choice: model.Agree},
	}
}

var testOwners = []model.ClusterStereotype{
	{ClusterID: 7, StereotypeID: 1},
	{ClusterID: 7, StereotypeID: 3},
	{ClusterID: 8, StereotypeID: 2},
}

func TestUserRows(t *testing.T) {
	rows := UserRows(testColumns, testUserVotes(), map[int64]int64{2: 8})
	require.Len(t, rows, 2, "voter 3 only voted outside the column set")

	assert.Equal(t, UserRow(1), rows[0].ID)
	assert.Equal(t, -1.0, rows[0].Values[0])
	assert.True(t, math.IsNaN(rows[0].Values[1]))
	assert.Equal(t, 1.0, rows[0].Values[2])
	assert.Equal(t, int64(0), rows[0].Cluster)

	assert.Equal(t, UserRow(2), rows[1].ID)
	assert.True(t, math.IsNaN(rows[1].Values[1]), "skip is missing")
	assert.Equal(t, int64(8), rows[1].Cluster)
}

func TestSignedRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 2, 42, 1 << 40} {
		s := SyntheticRow(id)
		assert.Equal(t, -id, s.Signed())
		assert.Equal(t, s, FromSigned(s.Signed()))
		assert.Equal(t, id, -s.Signed())

		u := UserRow(id)
		assert.Equal(t, id, u.Signed())
		assert.Equal(t, u, FromSigned(u.Signed()))
	}
}

func TestAssembleRowCountAndOrder(t *testing.T) {
	users := UserRows(testColumns, testUserVotes(), nil)
	exemplars := StereotypeRows(testColumns, testStereotypeVotes(), testOwners)

	table, err := Assemble(testColumns, users, exemplars, Options{ClusterCol: "cluster"})
	require.NoError(t, err)
	require.Equal(t, len(users)+len(exemplars), table.Len())

	assert.Equal(t, []int64{1, 2, -1, -2, -3}, table.Index())
	for i, r := range table.Rows {
		assert.Equal(t, i < len(users), r.ID.IsUser(), "user rows precede synthetic rows")
	}
	assert.Equal(t, int64(7), table.Rows[2].Cluster)
	assert.Equal(t, int64(8), table.Rows[3].Cluster)

	seen := map[int64]bool{}
	for _, idx := range table.Index() {
		assert.False(t, seen[idx], "duplicate index %d", idx)
		seen[idx] = true
	}
}

func TestAssembleKindColumnKeepsRawIDs(t *testing.T) {
	users := UserRows(testColumns, testUserVotes(), nil)
	exemplars := StereotypeRows(testColumns, testStereotypeVotes(), testOwners)

	table, err := Assemble(testColumns, users, exemplars, Options{KindCol: "is_user"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 1, 2, 3}, table.Index())

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "index,10,20,30,is_user\n")
	assert.Contains(t, buf.String(), "1,-1,,1,true\n")
	assert.Contains(t, buf.String(), "1,1,-1,,false\n")
}

func TestAssembleRejectsZeroIDCollision(t *testing.T) {
	users := []Row{{ID: UserRow(0), Values: []float64{1}}}
	exemplars := []Row{{ID: SyntheticRow(0), Values: []float64{-1}}}

	_, err := Assemble([]int64{10}, users, exemplars, Options{})
	require.ErrorIs(t, err, ErrRowIdentityCollision)

	// The kind column disambiguates the same rows.
	table, err := Assemble([]int64{10}, users, exemplars, Options{KindCol: "is_user"})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestMeanRows(t *testing.T) {
	rows, err := MeanRows(testColumns, []int64{8, 7, 9}, testStereotypeVotes(), testOwners)
	require.NoError(t, err)
	require.Len(t, rows, 3, "one row per cluster, including cluster 9 without stereotypes")

	assert.Equal(t, SyntheticRow(7), rows[0].ID)
	assert.Equal(t, 1.0, rows[0].Values[0])
	assert.Equal(t, 0.0, rows[0].Values[1], "mean of disagree and agree")
	assert.True(t, math.IsNaN(rows[0].Values[2]))

	assert.Equal(t, SyntheticRow(8), rows[1].ID)
	assert.Equal(t, []float64{-1, 1}, rows[1].Values[:2])

	assert.Equal(t, SyntheticRow(9), rows[2].ID)
	for _, v := range rows[2].Values {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMeanRowsNoVotes(t *testing.T) {
	_, err := MeanRows(testColumns, []int64{7, 8}, nil, testOwners)
	require.True(t, errors.Is(err, ErrNoVotes))

	// Votes from stereotypes outside the scope do not count.
	_, err = MeanRows(testColumns, []int64{99}, testStereotypeVotes(), testOwners)
	require.ErrorIs(t, err, ErrNoVotes)
}

func TestCommentMeans(t *testing.T) {
	means := CommentMeans([]model.StereotypeVote{
		{StereotypeID: 1, CommentID: 10, Choice: model.Agree},
		{StereotypeID: 2, CommentID: 10, Choice: model.Agree},
		{StereotypeID: 3, CommentID: 10, Choice: model.Disagree},
		{StereotypeID: 1, CommentID: 20, Choice: model.Skip},
	})
	assert.InDelta(t, 1.0/3.0, means[10], 1e-9)
	_, ok := means[20]
	assert.False(t, ok)
}
