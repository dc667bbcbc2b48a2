// Copyright 2015 Zalando SE
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package traject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zalando/traject/converter"
	"github.com/zalando/traject/dispatch"
	"github.com/zalando/traject/logging"
	"github.com/zalando/traject/metrics"
	"github.com/zalando/traject/routefile"
	"github.com/zalando/traject/routing"
)

const (
	defaultAddress           = ":9090"
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadHeaderTimeout = 60 * time.Second
)

// Options to start traject.
type Options struct {

	// Network address that traject should listen on.
	Address string

	// Network address used for exposing the /metrics and the /routes
	// endpoints. An empty value disables the support listener.
	SupportListener string

	// File containing the route definitions in YAML format.
	RoutesFile string

	// When greater than zero, the routes file is polled with this
	// interval, and the changes are applied without restart.
	RoutesFilePollInterval time.Duration

	// Route definitions given inline. When set, RoutesFile is ignored.
	InlineRoutes *routefile.AppDef

	// Root application. When set, the route definitions are ignored.
	// Useful when the applications are declared in code.
	Root *routing.App

	// Converter registry used by the route definitions. Defaults to
	// converter.Defaults().
	Converters *converter.Registry

	// Views registered in addition to the route file views.
	CustomViews []dispatch.View

	// When set, the registered patterns are logged on startup.
	PrintRoutes bool

	// When set, the responses are gzip compressed for the clients
	// accepting it.
	EnableCompression bool

	// Timeouts of the server connections.
	ReadHeaderTimeoutServer time.Duration
	ReadTimeoutServer       time.Duration
	WriteTimeoutServer      time.Duration
	IdleTimeoutServer       time.Duration

	// Maximum time to wait for the requests in progress on shutdown.
	ShutdownTimeout time.Duration

	// Output file for the application log. Default value: /dev/stderr.
	ApplicationLogOutput string

	// Prefix for application log entries.
	ApplicationLogPrefix string

	// Level of the application log, e.g. INFO or DEBUG.
	ApplicationLogLevel string

	// Output file for the access log. Default value: /dev/stderr.
	AccessLogOutput string

	// Disables the access log.
	AccessLogDisabled bool

	// Enables logging access log entries in JSON format.
	AccessLogJSONEnabled bool

	// Enables the Prometheus metrics on the support listener.
	EnablePrometheusMetrics bool

	// Namespace of the exposed metrics.
	MetricsPrefix string

	// Buckets of the duration histograms.
	HistogramMetricBuckets []float64

	// Enables the Go runtime and the process metrics.
	EnableRuntimeMetrics bool

	// Custom metrics backend, takes precedence over
	// EnablePrometheusMetrics.
	Metrics metrics.Metrics
}

type server struct {
	options  Options
	dispatch *dispatch.Handler
	handler  http.Handler
	metrics  metrics.Metrics
	watch    *routefile.WatchClient
}

func (o *Options) converters() *converter.Registry {
	if o.Converters != nil {
		return o.Converters
	}

	return converter.Defaults()
}

func (o *Options) views() (*dispatch.Registry, error) {
	r := dispatch.NewRegistry()
	if err := routefile.RegisterViews(r); err != nil {
		return nil, err
	}

	for _, v := range o.CustomViews {
		if err := r.Register(v); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (o *Options) metricsBackend() metrics.Metrics {
	switch {
	case o.Metrics != nil:
		return o.Metrics
	case o.EnablePrometheusMetrics:
		return metrics.NewPrometheus(metrics.Options{
			Prefix:               o.MetricsPrefix,
			HistogramBuckets:     o.HistogramMetricBuckets,
			EnableRuntimeMetrics: o.EnableRuntimeMetrics,
		})
	default:
		return metrics.Default
	}
}

// loads the root application into the dispatch handler, and starts
// watching the routes file when configured
func (s *server) loadRoot() error {
	o := s.options
	var (
		app *routing.App
		err error
	)

	switch {
	case o.Root != nil:
		app = o.Root
	case o.InlineRoutes != nil:
		app, err = routefile.Build(o.InlineRoutes, o.converters())
	case o.RoutesFile != "" && o.RoutesFilePollInterval > 0:
		// the watcher sets the initial root, too
		s.watch, _, err = routefile.Watch(o.RoutesFile, o.converters(), o.RoutesFilePollInterval, s.setRoot)
		return err
	case o.RoutesFile != "":
		app, err = routefile.LoadApp(o.RoutesFile, o.converters())
	default:
		log.Warn("no route source specified")
	}

	if err != nil {
		return err
	}

	s.setRoot(app)
	return nil
}

func (s *server) setRoot(app *routing.App) {
	s.dispatch.SetRoot(app)
	s.printRoutes(app)
}

func (s *server) printRoutes(app *routing.App) {
	if !s.options.PrintRoutes || app == nil {
		return
	}

	for _, p := range app.Patterns() {
		log.Infof("route: /%s", p)
	}
}

func newServer(o Options) (*server, error) {
	views, err := o.views()
	if err != nil {
		return nil, err
	}

	s := &server{options: o, metrics: o.metricsBackend()}
	s.dispatch = dispatch.NewHandler(dispatch.Options{
		Views:   views,
		Metrics: s.metrics,
	})

	if err := s.loadRoot(); err != nil {
		return nil, err
	}

	var h http.Handler = s.dispatch
	if o.EnableCompression {
		h = gzhttp.GzipHandler(h)
	}

	s.handler = logging.NewHandler(h)
	return s, nil
}

func (s *server) close() {
	if s.watch != nil {
		s.watch.Close()
	}
}

func (s *server) routesHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	root := s.dispatch.Root()
	if root == nil {
		return
	}

	for _, p := range root.Patterns() {
		fmt.Fprintf(w, "/%s\n", p)
	}
}

func (s *server) supportHandler() http.Handler {
	mux := http.NewServeMux()
	s.metrics.RegisterHandler("/metrics", mux)
	mux.HandleFunc("/routes", s.routesHandler)
	return mux
}

// NewHandler creates the HTTP handler serving the applications defined by
// the options, wrapped with the access log. It doesn't start watching the
// routes file.
func NewHandler(o Options) (http.Handler, error) {
	o.RoutesFilePollInterval = 0
	s, err := newServer(o)
	if err != nil {
		return nil, err
	}

	return s.handler, nil
}

func openLogOutput(files *[]*os.File, name string) (io.Writer, error) {
	if name == "" {
		return nil, nil
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, err
	}

	*files = append(*files, f)
	return f, nil
}

// initializes logging. The returned function restores the default log
// outputs and closes the opened log files.
func initLog(o Options) (func(), error) {
	var files []*os.File
	closeLog := func() {
		if o.ApplicationLogOutput != "" {
			log.SetOutput(os.Stderr)
		}

		if o.AccessLogOutput != "" {
			logging.Init(logging.Options{AccessLogDisabled: true})
		}

		for _, f := range files {
			if err := f.Close(); err != nil {
				log.Errorf("failed to close log file %s: %v", f.Name(), err)
			}
		}
	}

	appOutput, err := openLogOutput(&files, o.ApplicationLogOutput)
	if err != nil {
		return nil, err
	}

	accessOutput, err := openLogOutput(&files, o.AccessLogOutput)
	if err != nil {
		closeLog()
		return nil, err
	}

	if err := logging.Init(logging.Options{
		ApplicationLogPrefix: o.ApplicationLogPrefix,
		ApplicationLogOutput: appOutput,
		ApplicationLogLevel:  o.ApplicationLogLevel,
		AccessLogOutput:      accessOutput,
		AccessLogDisabled:    o.AccessLogDisabled,
		AccessLogJSONEnabled: o.AccessLogJSONEnabled,
	}); err != nil {
		closeLog()
		return nil, err
	}

	return closeLog, nil
}

func (o *Options) httpServer(addr string, h http.Handler) *http.Server {
	rht := o.ReadHeaderTimeoutServer
	if rht <= 0 {
		rht = defaultReadHeaderTimeout
	}

	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: rht,
		ReadTimeout:       o.ReadTimeoutServer,
		WriteTimeout:      o.WriteTimeoutServer,
		IdleTimeout:       o.IdleTimeoutServer,
	}
}

func listenAndServe(g *errgroup.Group, srv *http.Server, name string) error {
	l, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	log.Infof("%s listener on %v", name, l.Addr())
	g.Go(func() error {
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s listener: %w", name, err)
		}

		return nil
	})

	return nil
}

// RunWithShutdown starts traject, and blocks until a signal is received on
// sig or one of the listeners fails. On a signal, the listeners are shut
// down gracefully.
func RunWithShutdown(o Options, sig <-chan os.Signal) error {
	closeLog, err := initLog(o)
	if err != nil {
		return err
	}

	defer closeLog()

	s, err := newServer(o)
	if err != nil {
		return err
	}

	defer s.close()

	if o.Address == "" {
		o.Address = defaultAddress
	}

	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}

	servers := []*http.Server{o.httpServer(o.Address, s.handler)}
	if o.SupportListener != "" {
		servers = append(servers, o.httpServer(o.SupportListener, s.supportHandler()))
	}

	g, ctx := errgroup.WithContext(context.Background())
	names := []string{"main", "support"}
	for i, srv := range servers {
		if err := listenAndServe(g, srv, names[i]); err != nil {
			for _, started := range servers[:i] {
				started.Close()
			}

			g.Wait()
			return err
		}
	}

	g.Go(func() error {
		select {
		case v := <-sig:
			log.Infof("got shutdown signal: %v", v)
		case <-ctx.Done():
		}

		sctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	})

	return g.Wait()
}

// Run starts traject, and blocks until SIGTERM or SIGINT is received.
func Run(o Options) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sig)
	return RunWithShutdown(o, sig)
}
