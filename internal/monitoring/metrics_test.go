package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCount(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncFieldParseErrors("last_update")
	m.IncFieldParseErrors("last_update")
	m.IncFetchErrors("dockerhub")
	m.AddRecords("image", 25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FieldParseErrors.WithLabelValues("last_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("dockerhub")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.RecordsExtracted.WithLabelValues("image")))
}

func TestObserveHTTP(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHTTP("POST", "/api/scrape", "202", 0.01)
	m.ObserveHTTP("POST", "/api/scrape", "202", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/scrape", "202")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestMetricsSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
