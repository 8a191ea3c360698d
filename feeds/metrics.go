package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personyze_feed_rows_exported_total",
		Help: "Total number of feed rows written to clients",
	}, []string{"kind"})

	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personyze_feed_pages_fetched_total",
		Help: "Total number of feed pages read from the database",
	}, []string{"kind"})

	exportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personyze_feed_errors_total",
		Help: "Total number of feed exports aborted by an error",
	}, []string{"kind"})
)
