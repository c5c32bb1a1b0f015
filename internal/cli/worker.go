package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/ejcluster/internal/observability"
	"github.com/rcliao/ejcluster/internal/worker"
)

func init() {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Re-clusterize every clusterization periodically",
		Long:  "Runs every clusterization one at a time on each pass and serves /healthz, /readyz and /metrics.",
		Run:   runWorker,
	}

	cmd.Flags().Bool("once", false, "Run a single pass and exit")

	RootCmd.AddCommand(cmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	once, _ := cmd.Flags().GetBool("once")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	r := worker.NewReclusterizer(s, newService(s), pipelineFactory(), logger)

	if once {
		res, err := r.Pass(ctx)
		if err != nil {
			exitErr("worker pass", err)
		}
		printJSON(res)
		return
	}

	cfg := resolved.Config.Worker
	if cfg.MetricsAddr != "" {
		srv := observability.NewServer(s, cfg.MetricsAddr, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("health server stopped")
			}
		}()
	}

	err = worker.Loop(ctx, worker.Config{
		Name:     "reclusterize",
		Interval: cfg.Interval,
		Process:  r.Process,
		Logger:   logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		exitErr("worker", err)
	}
}
