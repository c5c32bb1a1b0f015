package votes

import (
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/ejcluster/internal/model"
)

// StereotypeRows builds one exemplar row per stereotype that voted on at
// least one column. The cluster column is the lowest owning cluster id.
func StereotypeRows(columns []int64, votes []model.StereotypeVote, owners []model.ClusterStereotype) []Row {
	idx := columnIndex(columns)
	clusterOf := lowestOwner(owners)

	byStereotype := make(map[int64][]float64)
	for _, v := range votes {
		col, ok := idx[v.CommentID]
		if !ok {
			continue
		}
		row, ok := byStereotype[v.StereotypeID]
		if !ok {
			row = missingRow(len(columns))
			byStereotype[v.StereotypeID] = row
		}
		row[col], _ = v.Choice.Value()
	}

	rows := make([]Row, 0, len(byStereotype))
	for id, values := range byStereotype {
		rows = append(rows, Row{ID: SyntheticRow(id), Values: values, Cluster: clusterOf[id]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID.ID < rows[j].ID.ID })
	return rows
}

// MeanRows builds exactly one exemplar row per cluster, in ascending
// cluster id order: the per-comment mean of the votes of every stereotype
// owned by that cluster. A cluster whose stereotypes never voted gets an
// all-missing row so the row count always equals len(clusterIDs).
func MeanRows(columns []int64, clusterIDs []int64, votes []model.StereotypeVote, owners []model.ClusterStereotype) ([]Row, error) {
	idx := columnIndex(columns)

	ids := append([]int64(nil), clusterIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	inScope := make(map[int64]bool, len(ids))
	for _, id := range ids {
		inScope[id] = true
	}
	clustersOf := make(map[int64][]int64)
	for _, o := range owners {
		if inScope[o.ClusterID] {
			clustersOf[o.StereotypeID] = append(clustersOf[o.StereotypeID], o.ClusterID)
		}
	}

	// samples[cluster][column] collects the non-missing stereotype values.
	samples := make(map[int64][][]float64, len(ids))
	total := 0
	for _, v := range votes {
		col, ok := idx[v.CommentID]
		if !ok {
			continue
		}
		clusters := clustersOf[v.StereotypeID]
		if len(clusters) == 0 {
			continue
		}
		total++
		val, ok := v.Choice.Value()
		if !ok {
			continue
		}
		for _, c := range clusters {
			if samples[c] == nil {
				samples[c] = make([][]float64, len(columns))
			}
			samples[c][col] = append(samples[c][col], val)
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("mean stereotypes for %d clusters: %w", len(ids), ErrNoVotes)
	}

	rows := make([]Row, 0, len(ids))
	for _, c := range ids {
		values := missingRow(len(columns))
		for col, vals := range samples[c] {
			if len(vals) > 0 {
				values[col] = mean(vals)
			}
		}
		rows = append(rows, Row{ID: SyntheticRow(c), Values: values, Cluster: c})
	}
	return rows, nil
}

// CommentMeans returns the mean stereotype choice per comment. Skips are
// ignored; comments with no agree/disagree votes are absent.
func CommentMeans(votes []model.StereotypeVote) map[int64]float64 {
	vals := make(map[int64][]float64)
	for _, v := range votes {
		if x, ok := v.Choice.Value(); ok {
			vals[v.CommentID] = append(vals[v.CommentID], x)
		}
	}
	out := make(map[int64]float64, len(vals))
	for c, xs := range vals {
		out[c] = mean(xs)
	}
	return out
}

func lowestOwner(owners []model.ClusterStereotype) map[int64]int64 {
	out := make(map[int64]int64, len(owners))
	for _, o := range owners {
		if cur, ok := out[o.StereotypeID]; !ok || o.ClusterID < cur {
			out[o.StereotypeID] = o.ClusterID
		}
	}
	return out
}

// LowestCluster maps each user to the lowest cluster id they belong to.
func LowestCluster(members []model.Membership) map[int64]int64 {
	out := make(map[int64]int64, len(members))
	for _, m := range members {
		if cur, ok := out[m.UserID]; !ok || m.ClusterID < cur {
			out[m.UserID] = m.ClusterID
		}
	}
	return out
}

func isMissing(v float64) bool { return math.IsNaN(v) }
