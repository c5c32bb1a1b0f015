package clustering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rcliao/ejcluster/internal/model"
	"github.com/rcliao/ejcluster/internal/observability"
	"github.com/rcliao/ejcluster/internal/pipeline"
)

// Run clusterizes every cluster of a clusterization and records the attempt,
// successful or not, in the run log and the run metrics. The returned run
// is non-nil whenever the clusterization exists.
func (s *Service) Run(ctx context.Context, clusterizationID int64, factory pipeline.Factory) (*model.Run, error) {
	scope, err := s.ScopeOf(ctx, clusterizationID)
	if err != nil {
		return nil, err
	}

	run := &model.Run{
		ClusterizationID: clusterizationID,
		Clusters:         scope.Len(),
		StartedAt:        s.now().UTC(),
	}

	res, err := s.FindClusters(ctx, scope, factory)
	if err == nil {
		err = s.UpdateMembership(ctx, scope, res.Mapping)
	}

	finished := s.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunSucceeded
		run.Users = len(res.Mapping)
		observability.ClusteredUsers.WithLabelValues(strconv.FormatInt(clusterizationID, 10)).Set(float64(run.Users))
	}
	observability.RunsTotal.WithLabelValues(run.Status).Inc()
	observability.RunDuration.Observe(finished.Sub(run.StartedAt).Seconds())

	if recErr := s.store.RecordRun(ctx, run); recErr != nil {
		s.logger.Error().Err(recErr).Int64("clusterization_id", clusterizationID).Msg("failed to record run")
		if err == nil {
			err = fmt.Errorf("record run: %w", recErr)
		}
	}

	event := s.logger.Info()
	if run.Status == model.RunFailed {
		event = s.logger.Error().Str("error", run.Error)
	}
	event.
		Str("run_id", run.ID).
		Int64("clusterization_id", clusterizationID).
		Int("clusters", run.Clusters).
		Int("users", run.Users).
		Dur("duration", finished.Sub(run.StartedAt)).
		Msg("clusterization run finished")

	return run, err
}
