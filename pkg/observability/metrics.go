package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// BackfillDatesTotal tracks the number of single-date runs by terminal status
	BackfillDatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mozaic_backfill_dates_total",
			Help: "Total number of single-date backfill runs processed",
		},
		[]string{"status"}, // status: succeeded, failed
	)

	// BackfillDateDuration measures single-date run duration in seconds
	BackfillDateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mozaic_backfill_date_duration_seconds",
			Help:    "Single-date backfill run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5h
		},
		[]string{"status"},
	)

	// BackfillDatesRunning tracks the number of currently in-flight runs
	BackfillDatesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mozaic_backfill_dates_running",
			Help: "Number of single-date runs currently in flight",
		},
	)

	// PipelineQueriesTotal counts warehouse aggregate queries by outcome
	PipelineQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mozaic_pipeline_queries_total",
			Help: "Total number of warehouse aggregate queries executed",
		},
		[]string{"platform", "metric", "status"}, // status: success, error
	)

	// PipelineRowsUploaded counts rows appended to the output table
	PipelineRowsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mozaic_pipeline_rows_uploaded_total",
			Help: "Total number of forecast rows appended to the output table",
		},
	)

	// ScheduledRunsTotal counts daemon-triggered scheduled runs by outcome
	ScheduledRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mozaic_scheduled_runs_total",
			Help: "Total number of scheduled daily runs triggered by the daemon",
		},
		[]string{"status"}, // status: success, error
	)
)
