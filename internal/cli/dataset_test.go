package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ejcluster/internal/model"
)

func TestDecodeDatasetYAML(t *testing.T) {
	ds, err := decodeDataset([]byte(`
users:
  - id: 1
    name: ana
comments:
  - id: 10
    conversation_id: 1
    content: more trees
votes:
  - author_id: 1
    comment_id: 10
    choice: disagree
`), "yml")
	require.NoError(t, err)
	require.Len(t, ds.Votes, 1)
	assert.Equal(t, model.Disagree, ds.Votes[0].Choice)
	assert.Equal(t, "ana", ds.Users[0].Name)
}

func TestDatasetCodecs(t *testing.T) {
	in := &model.Dataset{
		Users:       []model.User{{ID: 1, Name: "ana"}},
		Votes:       []model.Vote{{AuthorID: 1, CommentID: 10, Choice: model.Skip}},
		Memberships: []model.Membership{{UserID: 1, ClusterID: 3}},
	}

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encodeDataset(&buf, in, format))

			out, err := decodeDataset(buf.Bytes(), format)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}

	require.Error(t, encodeDataset(&bytes.Buffer{}, in, "toml"))
	_, err := decodeDataset(nil, "toml")
	require.Error(t, err)
}
