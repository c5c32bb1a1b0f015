// Package observability exposes prometheus metrics and the health server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ejcluster_runs_total",
		Help: "The total number of clusterization runs",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ejcluster_run_duration_seconds",
		Help:    "Duration of clusterization runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	ClusteredUsers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ejcluster_clustered_users",
		Help: "Number of users assigned by the last run of a clusterization",
	}, []string{"clusterization"})

	WorkerPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ejcluster_worker_passes_total",
		Help: "The total number of worker passes over all clusterizations",
	})

	WorkerLastPassTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ejcluster_worker_last_pass_timestamp_seconds",
		Help: "Unix time of the last completed worker pass",
	})
)
