package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carestats_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carestats_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Report metrics
	reportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carestats_report_runs_total",
			Help: "Total number of report computations",
		},
		[]string{"report", "status"},
	)

	reportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carestats_report_duration_seconds",
			Help:    "Report computation time in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"report"},
	)

	// Load metrics
	recordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carestats_records_loaded_total",
			Help: "Total number of patient records loaded",
		},
		[]string{"target"},
	)

	rowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carestats_rows_rejected_total",
			Help: "Total number of input rows rejected, by reason",
		},
		[]string{"reason"},
	)

	datasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carestats_dataset_records",
			Help: "Number of records in the frozen in-memory dataset",
		},
	)
)

// Handler returns the Prometheus metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request. path is the route
// template, not the raw URL.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordReport(name string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	reportRunsTotal.WithLabelValues(name, status).Inc()
	reportDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func RecordRecordsLoaded(target string, n int64) {
	recordsLoaded.WithLabelValues(target).Add(float64(n))
}

func RecordRowsRejected(reason string, n int64) {
	rowsRejected.WithLabelValues(reason).Add(float64(n))
}

func SetDatasetRecords(n int) {
	datasetRecords.Set(float64(n))
}
