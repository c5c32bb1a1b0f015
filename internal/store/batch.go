package store

import (
	"context"
	"database/sql"
)

// maxParams is SQLite's default SQLITE_MAX_VARIABLE_NUMBER. No single
// statement binds more variables than this.
var maxParams = 32766

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// batches splits ids into consecutive runs of at most n. An empty input
// gives no batches.
func batches(ids []int64, n int) [][]int64 {
	if n < 1 {
		n = 1
	}
	var out [][]int64
	for len(ids) > n {
		out = append(out, ids[:n:n])
		ids = ids[n:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

// crossBatches pairs batches of two optional id filters so that no pair
// binds more than maxParams variables. A nil side means no filter on that
// column and is returned as a nil entry.
func crossBatches(a, b []int64) [][2][]int64 {
	half := maxParams / 2
	as := batches(a, half)
	if len(as) == 0 {
		as = [][]int64{nil}
	}
	var out [][2][]int64
	for _, x := range as {
		bs := batches(b, maxParams-len(x))
		if len(bs) == 0 {
			bs = [][]int64{nil}
		}
		for _, y := range bs {
			out = append(out, [2][]int64{x, y})
		}
	}
	return out
}
