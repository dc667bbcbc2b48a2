package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace       = "traject"
	promRouteSubsystem  = "route"
	promServeSubsystem  = "serve"
	promParamsSubsystem = "parameters"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	routeLookupM  prometheus.Histogram
	routeErrorsM  prometheus.Counter
	badRequestsM  *prometheus.CounterVec
	serveM        *prometheus.HistogramVec
	serveCounterM *prometheus.CounterVec

	opts     Options
	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new Prometheus metric backend.
func NewPrometheus(opts Options) *Prometheus {
	namespace := promNamespace
	if opts.Prefix != "" {
		namespace = strings.TrimSuffix(opts.Prefix, ".")
	}

	buckets := opts.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	routeLookup := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promRouteSubsystem,
		Name:      "lookup_duration_seconds",
		Help:      "Duration in seconds of resolving a path to a model.",
		Buckets:   buckets,
	})

	routeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promRouteSubsystem,
		Name:      "error_total",
		Help:      "The total of paths not resolved to a model.",
	})

	badRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promParamsSubsystem,
		Name:      "error_total",
		Help:      "The total of requests with invalid query parameters.",
	}, []string{"app"})

	serve := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: promServeSubsystem,
		Name:      "duration_seconds",
		Help:      "Duration in seconds of serving a request.",
		Buckets:   buckets,
	}, []string{"app", "view", "method"})

	serveCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: promServeSubsystem,
		Name:      "count",
		Help:      "Total number of served requests.",
	}, []string{"app", "view", "method", "code"})

	p := &Prometheus{
		routeLookupM:  routeLookup,
		routeErrorsM:  routeErrors,
		badRequestsM:  badRequests,
		serveM:        serve,
		serveCounterM: serveCounter,

		registry: opts.PrometheusRegistry,
		opts:     opts,
	}

	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	p.registerMetrics()
	return p
}

// sinceS returns the seconds passed since the start time until now.
func (p *Prometheus) sinceS(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (p *Prometheus) registerMetrics() {
	p.registry.MustRegister(p.routeLookupM)
	p.registry.MustRegister(p.routeErrorsM)
	p.registry.MustRegister(p.badRequestsM)
	p.registry.MustRegister(p.serveM)
	p.registry.MustRegister(p.serveCounterM)

	if p.opts.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p.registry.MustRegister(collectors.NewGoCollector())
	}
}

// CreateHandler returns a handler exposing the metrics in the Prometheus
// text format.
func (p *Prometheus) CreateHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) getHandler() http.Handler {
	if p.handler != nil {
		return p.handler
	}

	p.handler = p.CreateHandler()
	return p.handler
}

// RegisterHandler satisfies Metrics interface.
func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.getHandler())
}

// MeasureRouteLookup satisfies Metrics interface.
func (p *Prometheus) MeasureRouteLookup(start time.Time) {
	p.routeLookupM.Observe(p.sinceS(start))
}

// IncRoutingFailures satisfies Metrics interface.
func (p *Prometheus) IncRoutingFailures() {
	p.routeErrorsM.Inc()
}

// IncBadRequests satisfies Metrics interface.
func (p *Prometheus) IncBadRequests(app string) {
	p.badRequestsM.WithLabelValues(app).Inc()
}

// MeasureServe satisfies Metrics interface.
func (p *Prometheus) MeasureServe(app, view, method string, code int, start time.Time) {
	method = measuredMethod(method)
	view = viewLabel(view)
	p.serveM.WithLabelValues(app, view, method).Observe(p.sinceS(start))
	p.serveCounterM.WithLabelValues(app, view, method, fmt.Sprint(code)).Inc()
}
