package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/ejcluster/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a dataset from JSON or YAML",
		Long: "Import conversations, comments, users, votes, clusters and stereotypes (stdin or file). " +
			"Expects the format produced by export. The encoding follows the file extension unless --encoding is set.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().StringP("encoding", "e", "", "Dataset encoding: json or yaml (default: from file extension)")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("encoding")

	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open input", err)
		}
		defer f.Close()
		in = f
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
		}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		exitErr("read input", err)
	}

	ds, err := decodeDataset(data, format)
	if err != nil {
		exitErr("parse dataset", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	res, err := s.Import(cmd.Context(), ds)
	if err != nil {
		exitErr("import", err)
	}

	printJSON(map[string]interface{}{"ok": true, "imported": res})
}

func decodeDataset(data []byte, format string) (*model.Dataset, error) {
	var ds model.Dataset
	switch strings.ToLower(format) {
	case "", "json":
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &ds); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q (use json or yaml)", format)
	}
	return &ds, nil
}
