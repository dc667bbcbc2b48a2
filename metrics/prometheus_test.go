package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/traject/metrics"
)

func scrape(t *testing.T, m *metrics.Prometheus) string {
	t.Helper()

	w := httptest.NewRecorder()
	m.CreateHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusMetrics(t *testing.T) {
	for _, tt := range []struct {
		name   string
		opts   metrics.Options
		update func(m *metrics.Prometheus)
		expect []string
	}{{
		name: "routing failures",
		update: func(m *metrics.Prometheus) {
			m.IncRoutingFailures()
			m.IncRoutingFailures()
		},
		expect: []string{
			"# TYPE traject_route_error_total counter",
			"traject_route_error_total 2",
		},
	}, {
		name: "bad requests with custom prefix",
		opts: metrics.Options{Prefix: "wiki."},
		update: func(m *metrics.Prometheus) {
			m.IncBadRequests("root")
			m.IncBadRequests("wiki")
			m.IncBadRequests("wiki")
		},
		expect: []string{
			`wiki_parameters_error_total{app="root"} 1`,
			`wiki_parameters_error_total{app="wiki"} 2`,
		},
	}, {
		name: "served requests",
		update: func(m *metrics.Prometheus) {
			m.MeasureServe("root", "", "GET", 200, time.Now())
			m.MeasureServe("root", "edit", "FOO", 405, time.Now())
		},
		expect: []string{
			`traject_serve_count{app="root",code="200",method="GET",view="default"} 1`,
			`traject_serve_count{app="root",code="405",method="_unknownmethod_",view="edit"} 1`,
			`traject_serve_duration_seconds_count{app="root",method="GET",view="default"} 1`,
		},
	}, {
		name: "route lookup with custom buckets",
		opts: metrics.Options{HistogramBuckets: []float64{1, 10}},
		update: func(m *metrics.Prometheus) {
			m.MeasureRouteLookup(time.Now())
		},
		expect: []string{
			`traject_route_lookup_duration_seconds_bucket{le="1"} 1`,
			`traject_route_lookup_duration_seconds_bucket{le="10"} 1`,
			`traject_route_lookup_duration_seconds_count 1`,
		},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.PrometheusRegistry = prometheus.NewRegistry()
			m := metrics.NewPrometheus(tt.opts)
			tt.update(m)

			body := scrape(t, m)
			for _, e := range tt.expect {
				assert.Contains(t, body, e)
			}
		})
	}
}

func TestPrometheusRuntimeMetrics(t *testing.T) {
	m := metrics.NewPrometheus(metrics.Options{EnableRuntimeMetrics: true})
	assert.Contains(t, scrape(t, m), "go_goroutines")

	m = metrics.NewPrometheus(metrics.Options{})
	assert.NotContains(t, scrape(t, m), "go_goroutines")
}

func TestPrometheusRegisterHandler(t *testing.T) {
	m := metrics.NewPrometheus(metrics.Options{})
	m.IncRoutingFailures()

	mux := http.NewServeMux()
	m.RegisterHandler("/metrics", mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "traject_route_error_total 1")
}

func TestVoid(t *testing.T) {
	var m metrics.Metrics = metrics.Void{}
	m.MeasureRouteLookup(time.Now())
	m.IncRoutingFailures()
	m.IncBadRequests("root")
	m.MeasureServe("root", "", "GET", 200, time.Now())
	m.RegisterHandler("/metrics", http.NewServeMux())
}
