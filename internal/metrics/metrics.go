package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monocle_checks_total",
			Help: "Total number of probes by outcome",
		},
		[]string{"status", "error_type"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monocle_probe_duration_seconds",
			Help:    "Wall-clock time of health probes",
			Buckets: prometheus.DefBuckets,
		},
	)

	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monocle_incident_transitions_total",
			Help: "Incident state machine transitions by action",
		},
		[]string{"action"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monocle_notifications_total",
			Help: "Channel deliveries by channel type and result",
		},
		[]string{"channel", "result"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monocle_jobs_total",
			Help: "Check jobs by result",
		},
		[]string{"result"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monocle_job_duration_seconds",
			Help:    "Time taken to process a check job",
			Buckets: prometheus.DefBuckets,
		},
	)
)
