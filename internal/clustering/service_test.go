package clustering

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/pipeline"
	"github.com/rcliao/ejcluster/internal/store"
	"github.com/rcliao/ejcluster/internal/votes"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err, "create store")
	t.Cleanup(func() { s.Close() })
	return s
}

// world is two clusters A and B of one clusterization, each owning one
// stereotype with opposite opinions on two comments, and two users voting
// exactly like those stereotypes.
type world struct {
	st       *store.SQLiteStore
	z        model.Clusterization
	a, b     model.Cluster
	c1, c2   model.Comment
	u1, u2   model.User
	sta, stb model.Stereotype
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{st: newTestStore(t)}

	conv := model.Conversation{Title: "parks"}
	require.NoError(t, w.st.CreateConversation(ctx, &conv))
	w.c1 = model.Comment{ConversationID: conv.ID, Content: "more trees"}
	w.c2 = model.Comment{ConversationID: conv.ID, Content: "more parking"}
	require.NoError(t, w.st.CreateComment(ctx, &w.c1))
	require.NoError(t, w.st.CreateComment(ctx, &w.c2))

	w.z = model.Clusterization{ConversationID: conv.ID}
	require.NoError(t, w.st.CreateClusterization(ctx, &w.z))
	w.a = model.Cluster{ClusterizationID: w.z.ID, Name: "A"}
	w.b = model.Cluster{ClusterizationID: w.z.ID, Name: "B"}
	require.NoError(t, w.st.CreateCluster(ctx, &w.a))
	require.NoError(t, w.st.CreateCluster(ctx, &w.b))
	w.a.ConversationID, w.b.ConversationID = conv.ID, conv.ID

	w.sta = model.Stereotype{Name: "green"}
	w.stb = model.Stereotype{Name: "driver"}
	require.NoError(t, w.st.CreateStereotype(ctx, &w.sta))
	require.NoError(t, w.st.CreateStereotype(ctx, &w.stb))
	require.NoError(t, w.st.AddClusterStereotype(ctx, model.ClusterStereotype{ClusterID: w.a.ID, StereotypeID: w.sta.ID}))
	require.NoError(t, w.st.AddClusterStereotype(ctx, model.ClusterStereotype{ClusterID: w.b.ID, StereotypeID: w.stb.ID}))

	w.stereotypeVote(t, w.sta, w.c1, model.Agree)
	w.stereotypeVote(t, w.sta, w.c2, model.Disagree)
	w.stereotypeVote(t, w.stb, w.c1, model.Disagree)
	w.stereotypeVote(t, w.stb, w.c2, model.Agree)

	w.u1 = model.User{Name: "ana"}
	w.u2 = model.User{Name: "bo"}
	require.NoError(t, w.st.CreateUser(ctx, &w.u1))
	require.NoError(t, w.st.CreateUser(ctx, &w.u2))
	w.vote(t, w.u1, w.c1, model.Agree)
	w.vote(t, w.u1, w.c2, model.Disagree)
	w.vote(t, w.u2, w.c1, model.Disagree)
	w.vote(t, w.u2, w.c2, model.Agree)
	return w
}

func (w *world) vote(t *testing.T, u model.User, c model.Comment, ch model.Choice) {
	t.Helper()
	require.NoError(t, w.st.PutVote(context.Background(), model.Vote{AuthorID: u.ID, CommentID: c.ID, Choice: ch}))
}

func (w *world) stereotypeVote(t *testing.T, st model.Stereotype, c model.Comment, ch model.Choice) {
	t.Helper()
	require.NoError(t, w.st.PutStereotypeVote(context.Background(), model.StereotypeVote{StereotypeID: st.ID, CommentID: c.ID, Choice: ch}))
}

func (w *world) scope() Scope { return NewScope(w.a, w.b) }

func (w *world) members(t *testing.T) []model.Membership {
	t.Helper()
	got, err := w.st.Memberships(context.Background(), []int64{w.a.ID, w.b.ID})
	require.NoError(t, err)
	return got
}

func newService(st Store) *Service {
	return NewService(st, Config{Imputation: votes.ImputeMean}, nil)
}

// fixedLabels is a pipeline test double returning preset labels.
type fixedLabels struct {
	labels []int
	err    error
	seen   *votes.Table
}

func (f *fixedLabels) FitPredict(t *votes.Table) ([]int, error) {
	f.seen = t
	return f.labels, f.err
}

func factoryOf(e pipeline.Estimator) pipeline.Factory {
	return func(int) pipeline.Estimator { return e }
}

// countingStore records every read made through it.
type countingStore struct {
	Store
	reads int
}

func (c *countingStore) Comments(ctx context.Context, ids []int64) ([]model.Comment, error) {
	c.reads++
	return c.Store.Comments(ctx, ids)
}

func (c *countingStore) Votes(ctx context.Context, f store.VoteFilter) ([]model.Vote, error) {
	c.reads++
	return c.Store.Votes(ctx, f)
}

func (c *countingStore) Memberships(ctx context.Context, ids []int64) ([]model.Membership, error) {
	c.reads++
	return c.Store.Memberships(ctx, ids)
}

func (c *countingStore) ClusterStereotypes(ctx context.Context, ids []int64) ([]model.ClusterStereotype, error) {
	c.reads++
	return c.Store.ClusterStereotypes(ctx, ids)
}

func TestFindClustersMatchesStereotypes(t *testing.T) {
	w := newWorld(t)
	svc := newService(w.st)

	res, err := svc.FindClusters(context.Background(), w.scope(), pipeline.KMeansFactory(pipeline.DefaultOptions()))
	require.NoError(t, err)
	assert.Equal(t, ByUser{w.u1.ID: w.a.ID, w.u2.ID: w.b.ID}, res.Mapping)
	assert.IsType(t, &pipeline.KMeans{}, res.Estimator)
}

func TestFindClustersTableLayout(t *testing.T) {
	w := newWorld(t)
	est := &fixedLabels{labels: []int{1, 0, 1, 0}}

	res, err := newService(w.st).FindClusters(context.Background(), w.scope(), factoryOf(est))
	require.NoError(t, err)

	table := est.seen
	require.Equal(t, 4, table.Len())
	assert.Equal(t, []int64{w.u1.ID, w.u2.ID, -w.a.ID, -w.b.ID}, table.Index())
	assert.Zero(t, table.Missing())

	// Exemplar A got label 1 and B got 0, so the labels map back by anchor.
	assert.Equal(t, ByUser{w.u1.ID: w.a.ID, w.u2.ID: w.b.ID}, res.Mapping)
}

func TestFindClustersExcludesAnchors(t *testing.T) {
	w := newWorld(t)
	est := &fixedLabels{labels: []int{0, 0, 0, 1}}

	res, err := newService(w.st).FindClusters(context.Background(), w.scope(), factoryOf(est))
	require.NoError(t, err)
	assert.Len(t, res.Mapping, 2)
	for user := range res.Mapping {
		assert.Contains(t, []int64{w.u1.ID, w.u2.ID}, user)
	}
}

func TestFindClustersIncludesUnclassifiedParticipants(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.st.ReplaceMembership(ctx, []int64{w.a.ID}, []model.Membership{{UserID: w.u1.ID, ClusterID: w.a.ID}}))

	res, err := newService(w.st).FindClusters(ctx, w.scope(), pipeline.KMeansFactory(pipeline.DefaultOptions()))
	require.NoError(t, err)
	assert.Contains(t, res.Mapping, w.u2.ID)
}

func TestFindClustersRejectsMixedRootsBeforeFetch(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	conv := model.Conversation{Title: "other"}
	require.NoError(t, w.st.CreateConversation(ctx, &conv))
	other := model.Clusterization{ConversationID: conv.ID}
	require.NoError(t, w.st.CreateClusterization(ctx, &other))
	c := model.Cluster{ClusterizationID: other.ID, Name: "C"}
	require.NoError(t, w.st.CreateCluster(ctx, &c))

	cs := &countingStore{Store: w.st}
	called := false
	factory := func(int) pipeline.Estimator { called = true; return &fixedLabels{} }

	_, err := newService(cs).FindClusters(ctx, NewScope(w.a, c), factory)
	require.ErrorIs(t, err, ErrAmbiguousClusterization)
	assert.Zero(t, cs.reads)
	assert.False(t, called)
}

func TestFindClustersEmptyScope(t *testing.T) {
	w := newWorld(t)
	cs := &countingStore{Store: w.st}
	factory := func(int) pipeline.Estimator {
		t.Fatal("pipeline must not be built for an empty scope")
		return nil
	}

	_, err := newService(cs).FindClusters(context.Background(), Scope{}, factory)
	require.ErrorIs(t, err, ErrEmptyClusterSet)
	assert.Zero(t, cs.reads)
}

func TestFindClustersSingleClusterWarns(t *testing.T) {
	w := newWorld(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	svc := NewService(w.st, Config{Imputation: votes.ImputeMean}, &logger)

	res, err := svc.FindClusters(context.Background(), NewScope(w.a), factoryOf(&fixedLabels{labels: []int{0, 0, 0}}))
	require.NoError(t, err)
	assert.Equal(t, ByUser{w.u1.ID: w.a.ID, w.u2.ID: w.a.ID}, res.Mapping)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "single element")
}

func TestFindClustersDuplicateAnchorLabels(t *testing.T) {
	w := newWorld(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	svc := NewService(w.st, Config{}, &logger)

	res, err := svc.FindClusters(context.Background(), w.scope(), factoryOf(&fixedLabels{labels: []int{0, 0, 0, 0}}))
	require.NoError(t, err)
	// The later exemplar wins the label.
	assert.Equal(t, ByUser{w.u1.ID: w.b.ID, w.u2.ID: w.b.ID}, res.Mapping)
	assert.Contains(t, buf.String(), ErrDuplicateAnchorLabel.Error())
}

func TestFindClustersUnanchoredLabel(t *testing.T) {
	w := newWorld(t)
	_, err := newService(w.st).FindClusters(context.Background(), w.scope(), factoryOf(&fixedLabels{labels: []int{7, 0, 0, 1}}))
	require.ErrorIs(t, err, ErrUnanchoredLabel)
}

func TestFindClustersPropagatesPipelineError(t *testing.T) {
	w := newWorld(t)
	boom := errors.New("boom")
	_, err := newService(w.st).FindClusters(context.Background(), w.scope(), factoryOf(&fixedLabels{err: boom}))
	assert.Same(t, boom, err)
}

func TestFindClustersNoStereotypeVotes(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	conv := model.Conversation{Title: "empty"}
	require.NoError(t, w.st.CreateConversation(ctx, &conv))
	z := model.Clusterization{ConversationID: conv.ID}
	require.NoError(t, w.st.CreateClusterization(ctx, &z))
	c := model.Cluster{ClusterizationID: z.ID, Name: "lonely"}
	require.NoError(t, w.st.CreateCluster(ctx, &c))

	svc := newService(w.st)
	scope, err := svc.ScopeOf(ctx, z.ID)
	require.NoError(t, err)

	_, err = svc.FindClusters(ctx, scope, factoryOf(&fixedLabels{}))
	require.ErrorIs(t, err, votes.ErrNoVotes)
}

func TestVotesTableStereotypeRows(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.st.ReplaceMembership(ctx, []int64{w.a.ID, w.b.ID}, []model.Membership{
		{UserID: w.u1.ID, ClusterID: w.a.ID},
	}))
	svc := newService(w.st)

	classified, err := svc.VotesTable(ctx, w.scope(), TableOptions{Options: votes.Options{ClusterCol: "cluster"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{w.u1.ID, -w.sta.ID, -w.stb.ID}, classified.Index())
	assert.Equal(t, w.a.ID, classified.Rows[0].Cluster)
	assert.Equal(t, w.b.ID, classified.Rows[2].Cluster)

	all, err := svc.VotesTable(ctx, w.scope(), TableOptions{NonClassified: true, Options: votes.Options{KindCol: "is_user"}})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Len(), "participants plus stereotypes")
	assert.Equal(t, []int64{w.u1.ID, w.u2.ID, w.sta.ID, w.stb.ID}, all.Index())
	assert.False(t, all.Rows[2].ID.IsUser())
}

func TestVotesTableSkipUniqueCheck(t *testing.T) {
	w := newWorld(t)
	b := w.b
	b.ClusterizationID = w.z.ID + 100

	_, err := newService(w.st).VotesTable(context.Background(), NewScope(w.a, b), TableOptions{})
	require.ErrorIs(t, err, ErrAmbiguousClusterization)

	_, err = newService(w.st).VotesTable(context.Background(), NewScope(w.a, b), TableOptions{SkipUniqueCheck: true})
	require.NoError(t, err)
}

func TestMeanStereotypesTable(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	extra := model.Stereotype{Name: "hedger"}
	require.NoError(t, w.st.CreateStereotype(ctx, &extra))
	require.NoError(t, w.st.AddClusterStereotype(ctx, model.ClusterStereotype{ClusterID: w.a.ID, StereotypeID: extra.ID}))
	w.stereotypeVote(t, extra, w.c1, model.Disagree)

	table, err := newService(w.st).MeanStereotypesTable(ctx, w.scope(), votes.ImputeNone)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []float64{0, -1}, table.Rows[0].Values)
	assert.Equal(t, []float64{-1, 1}, table.Rows[1].Values)
}

func TestClusterMeanStereotype(t *testing.T) {
	w := newWorld(t)
	svc := newService(w.st)

	means, err := svc.ClusterMeanStereotype(context.Background(), w.a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{w.c1.ID: 1, w.c2.ID: -1}, means)

	empty, err := svc.ClusterMeanStereotype(context.Background(), 9999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUsersAndParticipants(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	require.NoError(t, w.st.ReplaceMembership(ctx, []int64{w.b.ID}, []model.Membership{{UserID: w.u2.ID, ClusterID: w.b.ID}}))
	svc := newService(w.st)

	users, err := svc.Users(ctx, w.scope())
	require.NoError(t, err)
	assert.Equal(t, []int64{w.u2.ID}, users)

	participants, err := svc.Participants(ctx, w.scope())
	require.NoError(t, err)
	assert.Equal(t, []int64{w.u1.ID, w.u2.ID}, participants)
}

func TestScopeOfNotFound(t *testing.T) {
	w := newWorld(t)
	_, err := newService(w.st).ScopeOf(context.Background(), 9999)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = newService(w.st).ScopeFor(context.Background(), []int64{w.a.ID, 9999})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateWithStereotypesNotImplemented(t *testing.T) {
	_, err := newService(nil).CreateWithStereotypes(context.Background(), "new", nil, nil)
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestCommentSummaries(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	silent := model.User{Name: "cy"}
	require.NoError(t, w.st.CreateUser(ctx, &silent))
	require.NoError(t, w.st.ReplaceMembership(ctx, []int64{w.a.ID}, []model.Membership{
		{UserID: w.u1.ID, ClusterID: w.a.ID},
		{UserID: w.u2.ID, ClusterID: w.a.ID},
		{UserID: silent.ID, ClusterID: w.a.ID},
	}))
	svc := newService(w.st)

	t.Run("per vote", func(t *testing.T) {
		sums, err := svc.CommentSummaries(ctx, w.a.ID, SummaryOptions{Scale: 100})
		require.NoError(t, err)
		require.Len(t, sums, 2)
		assert.Equal(t, 1, sums[0].Agree)
		assert.Equal(t, 1, sums[0].Disagree)
		assert.Equal(t, 2, sums[0].Total)
		assert.Equal(t, 3, sums[0].Members)
		assert.InDelta(t, 50.0, sums[0].AgreeR, 1e-9)
	})

	t.Run("per member", func(t *testing.T) {
		sums, err := svc.CommentSummaries(ctx, w.a.ID, SummaryOptions{Scale: 100, Per: PerMember})
		require.NoError(t, err)
		require.Len(t, sums, 2)
		assert.InDelta(t, 100.0/3, sums[0].AgreeR, 1e-9)
		assert.InDelta(t, 100.0/3, sums[0].DisagreeR, 1e-9)
		assert.InDelta(t, 0.0, sums[0].SkipR, 1e-9)
	})

	t.Run("stereotype opinion", func(t *testing.T) {
		sums, err := svc.CommentSummaries(ctx, w.a.ID, SummaryOptions{})
		require.NoError(t, err)
		require.Len(t, sums, 2)
		require.NotNil(t, sums[0].Stereotype)
		require.NotNil(t, sums[1].Stereotype)
		assert.InDelta(t, 1.0, *sums[0].Stereotype, 1e-9)
		assert.InDelta(t, -1.0, *sums[1].Stereotype, 1e-9)
	})

	t.Run("no stereotype votes", func(t *testing.T) {
		empty := model.Cluster{ClusterizationID: w.z.ID, Name: "C"}
		require.NoError(t, w.st.CreateCluster(ctx, &empty))
		sums, err := svc.CommentSummaries(ctx, empty.ID, SummaryOptions{})
		require.NoError(t, err)
		require.Len(t, sums, 2)
		assert.Nil(t, sums[0].Stereotype)
		assert.Zero(t, sums[0].Members)
	})

	t.Run("unknown normalization", func(t *testing.T) {
		_, err := svc.CommentSummaries(ctx, w.a.ID, SummaryOptions{Per: "weird"})
		require.ErrorIs(t, err, ErrUnknownNormalization)
	})
}

// A scope whose members outnumber SQLite's bind-variable limit still
// builds a full table.
func TestVotesTableLargeScope(t *testing.T) {
	if testing.Short() {
		t.Skip("large scope")
	}
	const n = 33000
	ctx := context.Background()
	st := newTestStore(t)

	ds := &model.Dataset{
		Conversations:   []model.Conversation{{ID: 1, Title: "budget"}},
		Comments:        []model.Comment{{ID: 1, ConversationID: 1, Content: "more libraries"}},
		Clusterizations: []model.Clusterization{{ID: 1, ConversationID: 1}},
		Clusters:        []model.Cluster{{ID: 1, ClusterizationID: 1, Name: "A"}},
	}
	for i := int64(1); i <= n; i++ {
		ds.Users = append(ds.Users, model.User{ID: i, Name: "u"})
		ds.Votes = append(ds.Votes, model.Vote{AuthorID: i, CommentID: 1, Choice: model.Agree})
		ds.Memberships = append(ds.Memberships, model.Membership{UserID: i, ClusterID: 1})
	}
	_, err := st.Import(ctx, ds)
	require.NoError(t, err)

	svc := newService(st)
	scope, err := svc.ScopeOf(ctx, 1)
	require.NoError(t, err)

	table, err := svc.VotesTable(ctx, scope, TableOptions{})
	require.NoError(t, err)
	require.Equal(t, n, table.Len())
	assert.Equal(t, int64(1), table.Rows[0].ID.ID)
	assert.Equal(t, int64(n), table.Rows[n-1].ID.ID)
	assert.Equal(t, int64(1), table.Rows[n-1].Cluster)
}
