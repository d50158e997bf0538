// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsInterpreted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commands_interpreted_total",
			Help: "Total number of inbound commands interpreted, by source and status",
		},
		[]string{"source", "status"},
	)

	CommandFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "command_failures_total",
			Help: "Total number of commands that ended in a parse failure",
		},
		[]string{"error_code"},
	)

	FallbackCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_calls_total",
			Help: "Total number of generative fallback calls, by result",
		},
		[]string{"provider", "result"},
	)

	FallbackDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fallback_call_duration_seconds",
			Help:    "Duration of generative fallback calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"provider"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of outbound notifications, by transport and status",
		},
		[]string{"transport", "status"},
	)

	DispatchWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_writes_total",
			Help: "Total number of dispatch log sink writes, by sink and status",
		},
		[]string{"sink", "status"},
	)

	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
