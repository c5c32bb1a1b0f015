package cli

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/clustering"
)

func init() {
	membershipCmd := &cobra.Command{
		Use:   "membership",
		Short: "Show or replace cluster membership",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "List the user links of a cluster set",
		Run:   runMembershipShow,
	}
	addScopeFlags(showCmd)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the membership of a cluster set from a JSON mapping on stdin",
		Long: `Reads {"<user id>": <cluster id>, ...} from stdin, or with --by-cluster
{"<cluster id>": [<user id>, ...], ...}. Every existing link of the cluster
set is removed and the mapping is written in one transaction.`,
		Run: runMembershipSet,
	}
	addScopeFlags(setCmd)
	setCmd.Flags().Bool("by-cluster", false, "Mapping is keyed by cluster id")

	membershipCmd.AddCommand(showCmd, setCmd)
	RootCmd.AddCommand(membershipCmd)
}

func runMembershipShow(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	scope, err := scopeFromFlags(ctx, cmd, newService(s))
	if err != nil {
		exitErr("scope", err)
	}

	members, err := s.Memberships(ctx, scope.IDs())
	if err != nil {
		exitErr("load memberships", err)
	}
	printOut(members, func() *table.Table { return membershipTable(members) })
}

func runMembershipSet(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	byCluster, _ := cmd.Flags().GetBool("by-cluster")

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var mapping clustering.Mapping
	if byCluster {
		var raw map[string][]int64
		if err := json.Unmarshal(data, &raw); err != nil {
			exitErr("parse json", err)
		}
		m := clustering.ByCluster{}
		for k, users := range raw {
			m[parseID(k)] = users
		}
		mapping = m
	} else {
		var raw map[string]int64
		if err := json.Unmarshal(data, &raw); err != nil {
			exitErr("parse json", err)
		}
		m := clustering.ByUser{}
		for k, cluster := range raw {
			m[parseID(k)] = cluster
		}
		mapping = m
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc := newService(s)
	scope, err := scopeFromFlags(ctx, cmd, svc)
	if err != nil {
		exitErr("scope", err)
	}

	if err := svc.UpdateMembership(ctx, scope, mapping); err != nil {
		exitErr("update membership", err)
	}

	printJSON(map[string]interface{}{"ok": true, "links": len(mapping.Links())})
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		exitErr("parse id", err)
	}
	return id
}
