package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Options of the metrics collection.
type Options struct {

	// Namespace of the metrics. A trailing '.' is ignored. Defaults to
	// "traject".
	Prefix string

	// Buckets of the duration histograms, in seconds. Defaults to
	// prometheus.DefBuckets.
	HistogramBuckets []float64

	// When set, the Go runtime and the process metrics are collected.
	EnableRuntimeMetrics bool

	// Custom registry, e.g. for tests. When nil, a new registry is used.
	PrometheusRegistry *prometheus.Registry
}

// Metrics is implemented by the metrics backends.
type Metrics interface {

	// Measures the resolution of a request path.
	MeasureRouteLookup(start time.Time)

	// Counts the paths that did not resolve to a model.
	IncRoutingFailures()

	// Counts the requests with invalid query parameters.
	IncBadRequests(app string)

	// Measures serving a request.
	MeasureServe(app, view, method string, code int, start time.Time)

	// Registers the handler exposing the metrics on a mux.
	RegisterHandler(path string, mux *http.ServeMux)
}

// Default is the metrics backend used when none is specified. It discards
// all the measurements.
var Default Metrics = Void{}

// Void discards all the measurements.
type Void struct{}

func (Void) MeasureRouteLookup(time.Time)                        {}
func (Void) IncRoutingFailures()                                 {}
func (Void) IncBadRequests(string)                               {}
func (Void) MeasureServe(string, string, string, int, time.Time) {}
func (Void) RegisterHandler(string, *http.ServeMux)              {}

func measuredMethod(m string) string {
	switch m {
	case "OPTIONS",
		"GET",
		"HEAD",
		"POST",
		"PUT",
		"PATCH",
		"DELETE",
		"TRACE",
		"CONNECT":
		return m
	default:
		return "_unknownmethod_"
	}
}

func viewLabel(v string) string {
	if v == "" {
		return "default"
	}

	return v
}
