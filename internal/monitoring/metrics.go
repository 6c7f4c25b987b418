package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesFetched     *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	RecordsExtracted *prometheus.CounterVec
	FieldParseErrors *prometheus.CounterVec
	SinkErrors       *prometheus.CounterVec
	Runs             *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	JobsInProgress      prometheus.Gauge
}

// NewMetrics registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_pages_fetched_total",
			Help: "The total number of pages fetched",
		}, []string{"target"}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_fetch_errors_total",
			Help: "The total number of failed page fetches",
		}, []string{"target"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neptun_fetch_duration_seconds",
			Help:    "Time spent fetching a single page",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"renderer"}),
		RecordsExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_records_extracted_total",
			Help: "The total number of records extracted",
		}, []string{"kind"}),
		FieldParseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_field_parse_errors_total",
			Help: "The total number of field values that could not be normalized",
		}, []string{"field"}), // e.g., 'last_update', 'downloads'
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_sink_errors_total",
			Help: "The total number of failed result writes",
		}, []string{"sink"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_runs_total",
			Help: "The total number of scrape runs by outcome",
		}, []string{"target", "status"}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "neptun_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neptun_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		JobsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "neptun_jobs_in_progress",
			Help: "Current number of scrape jobs submitted over the API and not yet finished.",
		}),
	}
}

func (m *Metrics) IncPagesFetched(target string) {
	m.PagesFetched.WithLabelValues(target).Inc()
}

func (m *Metrics) IncFetchErrors(target string) {
	m.FetchErrors.WithLabelValues(target).Inc()
}

func (m *Metrics) ObserveFetch(renderer string, seconds float64) {
	m.FetchDuration.WithLabelValues(renderer).Observe(seconds)
}

func (m *Metrics) AddRecords(kind string, n int) {
	m.RecordsExtracted.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncFieldParseErrors(field string) {
	m.FieldParseErrors.WithLabelValues(field).Inc()
}

func (m *Metrics) IncSinkErrors(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncRuns(target, status string) {
	m.Runs.WithLabelValues(target, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}
