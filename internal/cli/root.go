// Package cli implements the ejcluster CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/clustering"
	"github.com/rcliao/ejcluster/internal/config"
	"github.com/rcliao/ejcluster/internal/observability"
	"github.com/rcliao/ejcluster/internal/pipeline"
	"github.com/rcliao/ejcluster/internal/store"
)

var (
	dbPath     string
	configPath string
	envFile    string
	logLevel   string
	formatFlag string

	resolved *config.Resolved
	logger   *zerolog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ejcluster",
	Short: "Opinion clusters for conversation votes",
	Long: "Builds vote tables from conversation votes, clusters participants around " +
		"stereotype exemplars and keeps the stored cluster membership in sync. SQLite-backed, single binary.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $EJCLUSTER_DB or ~/.ejcluster/ejcluster.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.ejcluster/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: ./.env when present)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", formatJSON, "Output format: json or text")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := checkFormat(formatFlag); err != nil {
		return err
	}
	r, err := config.Resolve(config.ResolveOptions{
		ConfigPath:  configPath,
		EnvFile:     envFile,
		CLIDBPath:   dbPath,
		CLILogLevel: logLevel,
	})
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	resolved = r

	logger, err = observability.NewLogger(os.Stderr, r.Config.LogLevel, r.Config.LogFormat)
	return err
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(resolved.Config.DBPath, logger)
}

func newService(s clustering.Store) *clustering.Service {
	return clustering.NewService(s, clustering.Config{Imputation: resolved.Config.Imputation}, logger)
}

func pipelineFactory() pipeline.Factory {
	return pipeline.KMeansFactory(resolved.Config.Pipeline)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
