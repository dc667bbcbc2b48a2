package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zalando/traject/logging"
	"github.com/zalando/traject/metrics"
	"github.com/zalando/traject/pathtrie"
	"github.com/zalando/traject/routing"
)

// Options of the Handler.
type Options struct {

	// The root application. Can be replaced later with SetRoot.
	Root *routing.App

	// The views. Mandatory.
	Views *Registry

	// Metrics backend. Defaults to metrics.Default.
	Metrics metrics.Metrics

	// Logger for the failed requests. Defaults to the application log.
	Log logging.Logger
}

// Handler serves the models of an application tree with the registered
// views.
type Handler struct {
	root    atomic.Pointer[routing.App]
	views   *Registry
	metrics metrics.Metrics
	log     logging.Logger
}

type codeWriter struct {
	http.ResponseWriter
	code int
}

func (w *codeWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *codeWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}

	return w.ResponseWriter.Write(b)
}

func (w *codeWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// NewHandler creates a Handler.
func NewHandler(o Options) *Handler {
	if o.Views == nil {
		o.Views = NewRegistry()
	}

	if o.Metrics == nil {
		o.Metrics = metrics.Default
	}

	if o.Log == nil {
		o.Log = logging.New()
	}

	h := &Handler{views: o.Views, metrics: o.Metrics, log: o.Log}
	h.root.Store(o.Root)
	return h
}

// SetRoot replaces the root application. The requests in progress finish
// with the previous one.
func (h *Handler) SetRoot(app *routing.App) {
	h.root.Store(app)
}

// Root returns the current root application.
func (h *Handler) Root() *routing.App {
	return h.root.Load()
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, requestID string, code int, err error) {
	l := h.log.WithFields(map[string]any{"request-id": requestID})
	if code >= http.StatusInternalServerError {
		l.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, http.StatusText(code), code)
		return
	}

	l.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	if code == http.StatusBadRequest {
		http.Error(w, err.Error(), code)
		return
	}

	http.Error(w, http.StatusText(code), code)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := logging.RequestID(r)
	ctx := routing.NewContext(r, requestID)

	root := h.root.Load()
	if root == nil {
		h.metrics.IncRoutingFailures()
		h.fail(w, r, requestID, http.StatusNotFound, routing.ErrNotFound)
		return
	}

	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		h.metrics.IncBadRequests(root.Name())
		h.fail(w, r, requestID, http.StatusBadRequest, fmt.Errorf("%w: invalid query: %w", pathtrie.ErrBadRequest, err))
		return
	}

	res, err := routing.Resolve(ctx, root, r.URL.EscapedPath(), query)
	h.metrics.MeasureRouteLookup(start)
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrNotFound):
			h.metrics.IncRoutingFailures()
			h.fail(w, r, requestID, http.StatusNotFound, err)
		case errors.Is(err, pathtrie.ErrBadRequest):
			app := root.Name()
			if ctx.Instance != nil {
				app = ctx.Instance.App.Name()
			}

			h.metrics.IncBadRequests(app)
			h.fail(w, r, requestID, http.StatusBadRequest, err)
		default:
			h.fail(w, r, requestID, http.StatusInternalServerError, err)
		}

		return
	}

	app := res.Instance.App.Name()
	if e := logging.Entry(r); e != nil {
		e.App = app
		e.View = res.View
	}

	view, err := h.views.Lookup(res.Model, res.View, r.Method, r.Header.Get("Content-Type"))
	if err != nil {
		var merr *MethodError
		switch {
		case errors.As(err, &merr):
			w.Header().Set("Allow", strings.Join(merr.Allowed, ", "))
			h.fail(w, r, requestID, http.StatusMethodNotAllowed, err)
			h.metrics.MeasureServe(app, res.View, r.Method, http.StatusMethodNotAllowed, start)
		case errors.Is(err, ErrUnsupportedMediaType):
			h.fail(w, r, requestID, http.StatusUnsupportedMediaType, err)
			h.metrics.MeasureServe(app, res.View, r.Method, http.StatusUnsupportedMediaType, start)
		default:
			h.metrics.IncRoutingFailures()
			h.fail(w, r, requestID, http.StatusNotFound, err)
		}

		return
	}

	cw := &codeWriter{ResponseWriter: w}
	if err := view.Render(ctx, cw, res.Model); err != nil {
		if cw.code == 0 {
			h.fail(cw, r, requestID, http.StatusInternalServerError, err)
		} else {
			h.log.WithFields(map[string]any{"request-id": requestID}).Errorf("%s %s: rendering failed after the response started: %v", r.Method, r.URL.Path, err)
		}
	}

	if cw.code == 0 {
		cw.code = http.StatusOK
	}

	h.metrics.MeasureServe(app, res.View, r.Method, cw.code, start)
}
