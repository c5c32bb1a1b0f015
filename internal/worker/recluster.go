package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/observability"
	"github.com/rcliao/ejcluster/internal/pipeline"
)

// Lister lists the clusterizations to keep in sync.
type Lister interface {
	Clusterizations(ctx context.Context) ([]model.Clusterization, error)
}

// Runner clusterizes one clusterization and records the run.
type Runner interface {
	Run(ctx context.Context, clusterizationID int64, factory pipeline.Factory) (*model.Run, error)
}

// Reclusterizer re-runs every clusterization, one at a time, so two runs
// never race on the same membership.
type Reclusterizer struct {
	list    Lister
	runner  Runner
	factory pipeline.Factory
	logger  *zerolog.Logger
}

func NewReclusterizer(list Lister, runner Runner, factory pipeline.Factory, logger *zerolog.Logger) *Reclusterizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Reclusterizer{list: list, runner: runner, factory: factory, logger: logger}
}

// PassResult summarizes one pass.
type PassResult struct {
	Succeeded int
	Failed    int
}

// Pass runs every clusterization once. A failing clusterization is logged
// and does not stop the pass; only listing errors and cancellation do.
func (r *Reclusterizer) Pass(ctx context.Context) (PassResult, error) {
	var res PassResult

	zs, err := r.list.Clusterizations(ctx)
	if err != nil {
		return res, fmt.Errorf("list clusterizations: %w", err)
	}

	for _, z := range zs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := r.runner.Run(ctx, z.ID, r.factory); err != nil {
			res.Failed++
			r.logger.Warn().Err(err).Int64("clusterization_id", z.ID).Msg("clusterization failed")
			continue
		}
		res.Succeeded++
	}

	observability.WorkerPasses.Inc()
	observability.WorkerLastPassTimestamp.Set(float64(time.Now().Unix()))
	r.logger.Info().Int("succeeded", res.Succeeded).Int("failed", res.Failed).Msg("reclusterization pass finished")
	return res, nil
}

// Process adapts Pass to a worker ProcessFunc.
func (r *Reclusterizer) Process(ctx context.Context) error {
	_, err := r.Pass(ctx)
	return err
}
