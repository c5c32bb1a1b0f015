package votes

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rcliao/ejcluster/internal/model"
)

var (
	// ErrNoVotes is returned when an exemplar table has no stereotype votes
	// to average.
	ErrNoVotes = errors.New("no votes found")

	// ErrRowIdentityCollision is returned when two rows share an index under
	// the signed identity scheme (a synthetic id of 0 next to user 0).
	ErrRowIdentityCollision = errors.New("row identity collision")
)

// columnIndex maps a comment id to its column position.
func columnIndex(columns []int64) map[int64]int {
	idx := make(map[int64]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return idx
}

// SortedColumns returns the distinct comment ids in ascending order.
func SortedColumns(comments []model.Comment) []int64 {
	seen := make(map[int64]struct{}, len(comments))
	cols := make([]int64, 0, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		cols = append(cols, c.ID)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

// UserRows pivots user votes into one row per voter, ordered by user id.
// Votes on comments outside columns are ignored. clusterOf fills the cluster
// column and may be nil.
func UserRows(columns []int64, votes []model.Vote, clusterOf map[int64]int64) []Row {
	idx := columnIndex(columns)
	byUser := make(map[int64][]float64)
	for _, v := range votes {
		col, ok := idx[v.CommentID]
		if !ok {
			continue
		}
		row, ok := byUser[v.AuthorID]
		if !ok {
			row = missingRow(len(columns))
			byUser[v.AuthorID] = row
		}
		row[col], _ = v.Choice.Value()
	}

	rows := make([]Row, 0, len(byUser))
	for id, values := range byUser {
		rows = append(rows, Row{ID: UserRow(id), Values: values, Cluster: clusterOf[id]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.ID < rows[j].ID.ID })
	return rows
}

// Assemble joins user rows and exemplar rows into one table, user rows
// first, and applies the requested imputation to the combined table.
func Assemble(columns []int64, users, exemplars []Row, opts Options) (*Table, error) {
	t := &Table{
		Columns: append([]int64(nil), columns...),
		Rows:    make([]Row, 0, len(users)+len(exemplars)),
		Options: opts,
	}
	t.Rows = append(t.Rows, users...)
	t.Rows = append(t.Rows, exemplars...)

	if err := checkIdentities(t); err != nil {
		return nil, err
	}
	return Impute(t, opts.Imputation)
}

func checkIdentities(t *Table) error {
	seen := make(map[RowID]RowID, len(t.Rows))
	for _, r := range t.Rows {
		key := r.ID
		if t.Options.KindCol == "" {
			key = RowID{ID: r.ID.Signed()}
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: index %d used by %s %d and %s %d",
				ErrRowIdentityCollision, key.ID, prev.Kind, prev.ID, r.ID.Kind, r.ID.ID)
		}
		seen[key] = r.ID
	}
	return nil
}
