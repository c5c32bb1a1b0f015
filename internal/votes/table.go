// Package votes builds dense voter-by-comment matrices from sparse vote
// records, augments them with stereotype exemplar rows and imputes missing
// cells.
//
// Cells hold the numeric encoding of a choice (agree = 1, disagree = -1).
// Skipped and absent votes are both missing and are represented by NaN.
package votes

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// RowKind distinguishes real voters from synthetic exemplar rows.
type RowKind int

const (
	// KindUser marks a row for a real user.
	KindUser RowKind = iota
	// KindSynthetic marks a stereotype row or a per-cluster mean row.
	KindSynthetic
)

func (k RowKind) String() string {
	if k == KindSynthetic {
		return "synthetic"
	}
	return "user"
}

// RowID is the identity of a table row. Real and synthetic rows may share
// numeric ids; the kind keeps them apart.
type RowID struct {
	Kind RowKind `json:"kind"`
	ID   int64   `json:"id"`
}

// UserRow returns the identity of a real user row.
func UserRow(id int64) RowID { return RowID{Kind: KindUser, ID: id} }

// SyntheticRow returns the identity of a stereotype or cluster-mean row.
func SyntheticRow(id int64) RowID { return RowID{Kind: KindSynthetic, ID: id} }

// IsUser reports whether the row belongs to a real user.
func (r RowID) IsUser() bool { return r.Kind == KindUser }

// Signed returns the single-number index used when no kind column is
// active: synthetic rows are negated.
func (r RowID) Signed() int64 {
	if r.Kind == KindSynthetic {
		return -r.ID
	}
	return r.ID
}

// FromSigned inverts Signed. Zero and positive values are user rows.
func FromSigned(i int64) RowID {
	if i < 0 {
		return SyntheticRow(-i)
	}
	return UserRow(i)
}

// Row is one voter (or exemplar) in a table.
type Row struct {
	ID     RowID
	Values []float64
	// Cluster is the current owning cluster, 0 when the row has none.
	Cluster int64
}

// Options control the optional columns and imputation of an assembled table.
type Options struct {
	Imputation Imputation
	// ClusterCol names the cluster column; empty disables it.
	ClusterCol string
	// KindCol names the boolean user/synthetic column; empty selects the
	// signed-index identity scheme.
	KindCol string
}

// Table is a voter-by-comment matrix. User rows always precede synthetic
// rows.
type Table struct {
	Columns []int64
	Rows    []Row
	Options Options
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the row index under the active identity scheme: raw ids
// when a kind column is present, signed ids otherwise.
func (t *Table) Index() []int64 {
	out := make([]int64, len(t.Rows))
	for i, r := range t.Rows {
		if t.Options.KindCol != "" {
			out[i] = r.ID.ID
		} else {
			out[i] = r.ID.Signed()
		}
	}
	return out
}

// Matrix returns a copy of the cell values, one slice per row.
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = append([]float64(nil), r.Values...)
	}
	return out
}

// Missing counts the missing cells.
func (t *Table) Missing() int {
	n := 0
	for _, r := range t.Rows {
		for _, v := range r.Values {
			if math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]int64(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
		Options: t.Options,
	}
	for i, r := range t.Rows {
		c.Rows[i] = Row{ID: r.ID, Values: append([]float64(nil), r.Values...), Cluster: r.Cluster}
	}
	return c
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) []Row {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[len(t.Rows)-n:]
}

// Header returns the CSV header: index, one column per comment, then the
// optional cluster and kind columns.
func (t *Table) Header() []string {
	h := make([]string, 0, len(t.Columns)+3)
	h = append(h, "index")
	for _, c := range t.Columns {
		h = append(h, strconv.FormatInt(c, 10))
	}
	if t.Options.ClusterCol != "" {
		h = append(h, t.Options.ClusterCol)
	}
	if t.Options.KindCol != "" {
		h = append(h, t.Options.KindCol)
	}
	return h
}

// WriteCSV writes the table as CSV. Missing cells are empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	index := t.Index()
	for i, r := range t.Rows {
		rec := make([]string, 0, len(r.Values)+3)
		rec = append(rec, strconv.FormatInt(index[i], 10))
		for _, v := range r.Values {
			if math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if t.Options.ClusterCol != "" {
			if r.Cluster == 0 {
				rec = append(rec, "")
			} else {
				rec = append(rec, strconv.FormatInt(r.Cluster, 10))
			}
		}
		if t.Options.KindCol != "" {
			rec = append(rec, strconv.FormatBool(r.ID.IsUser()))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", index[i], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func missingRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
