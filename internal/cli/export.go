package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/ejcluster/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dataset as JSON or YAML",
		Long:  "Export every record, or with --membership only the current user to cluster links.",
		Run:   runExport,
	}

	cmd.Flags().StringP("encoding", "e", "json", "Dataset encoding: json or yaml")
	cmd.Flags().Bool("membership", false, "Export only cluster memberships")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("encoding")
	membershipOnly, _ := cmd.Flags().GetBool("membership")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ds, err := s.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	if membershipOnly {
		ds = &model.Dataset{Memberships: ds.Memberships}
	}

	if err := encodeDataset(os.Stdout, ds, format); err != nil {
		exitErr("write output", err)
	}
}

func encodeDataset(w io.Writer, ds *model.Dataset, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (use json or yaml)", format)
}
