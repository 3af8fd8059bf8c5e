package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PagesFetched cuenta las páginas pedidas a la Data API por endpoint y status.
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_pages_fetched_total",
			Help: "Total number of pages requested from paginated endpoints.",
		},
		[]string{"endpoint", "status"},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_rate_limited_total",
			Help: "Total number of 429 responses received.",
		},
		[]string{"endpoint"},
	)
	RecordsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_records_fetched_total",
			Help: "Total number of records received before dedup.",
		},
		[]string{"source"},
	)
	DuplicatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_duplicates_dropped_total",
			Help: "Total number of records collapsed by the dedup key.",
		},
		[]string{"source"},
	)
	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyledger_worker_duration_seconds",
			Help:    "Wall-clock time spent by each range worker.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	// MetadataBatches cuenta los batches de Gamma por resultado (ok | failed).
	MetadataBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_metadata_batches_total",
			Help: "Total number of market metadata batches requested.",
		},
		[]string{"result"},
	)
	CLVSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyledger_clv_skipped_total",
			Help: "Market/outcome pairs without a computable closing-line value.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		PagesFetched,
		RateLimited,
		RecordsFetched,
		DuplicatesDropped,
		WorkerDuration,

		MetadataBatches,
		CLVSkipped,
	)
}
