package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rcliao/ejcluster/internal/clustering"
	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/store"
)

// Output formats for --format.
const (
	formatJSON = "json"
	formatText = "text"
)

func checkFormat(f string) error {
	switch f {
	case formatJSON, formatText:
		return nil
	}
	return fmt.Errorf("unknown output format %q (use json or text)", f)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printOut writes v as JSON, or the table built by text when --format is
// text. Commands without a text rendering pass nil.
func printOut(v interface{}, text func() *table.Table) {
	if formatFlag == formatText && text != nil {
		fmt.Println(text().String())
		return
	}
	printJSON(v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func fmtID(n int64) string { return strconv.FormatInt(n, 10) }

func membershipTable(links []model.Membership) *table.Table {
	t := newTable("cluster", "user")
	for _, l := range links {
		t.Row(fmtID(l.ClusterID), fmtID(l.UserID))
	}
	return t
}

func runsTable(runs []model.Run) *table.Table {
	t := newTable("run", "clusterization", "status", "clusters", "users", "started", "took", "error")
	for _, r := range runs {
		took := ""
		if r.FinishedAt != nil {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.Row(r.ID, fmtID(r.ClusterizationID), r.Status, strconv.Itoa(r.Clusters), strconv.Itoa(r.Users),
			r.StartedAt.Format(time.RFC3339), took, r.Error)
	}
	return t
}

func summaryTable(sums []clustering.CommentSummary) *table.Table {
	t := newTable("comment", "agree", "disagree", "skip", "total", "agree ratio", "disagree ratio", "skip ratio", "stereotype", "content")
	ratio := func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
	for _, s := range sums {
		stereotype := "-"
		if s.Stereotype != nil {
			stereotype = ratio(*s.Stereotype)
		}
		t.Row(fmtID(s.CommentID), strconv.Itoa(s.Agree), strconv.Itoa(s.Disagree), strconv.Itoa(s.Skip),
			strconv.Itoa(s.Total), ratio(s.AgreeR), ratio(s.DisagreeR), ratio(s.SkipR), stereotype, s.Content)
	}
	return t
}

func statsTable(st *store.Stats) *table.Table {
	t := newTable("item", "count")
	t.Row("users", strconv.Itoa(st.Users))
	t.Row("conversations", strconv.Itoa(st.Conversations))
	t.Row("comments", strconv.Itoa(st.Comments))
	t.Row("votes", strconv.Itoa(st.Votes))
	t.Row("clusterizations", strconv.Itoa(st.Clusterizations))
	t.Row("stereotypes", strconv.Itoa(st.Stereotypes))
	for _, c := range st.Clusters {
		t.Row(fmt.Sprintf("cluster %d %q (clusterization %d)", c.ID, c.Name, c.ClusterizationID),
			fmt.Sprintf("%d members, %d stereotypes", c.Members, c.Stereotypes))
	}
	if st.LastRun != nil {
		t.Row("last run", st.LastRun.Status+" at "+st.LastRun.StartedAt.Format(time.RFC3339))
	}
	return t
}
