package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id of the request. When the client does not
// send it, the handler generates one, and it is always returned in the
// response.
const RequestIDHeader = "X-Request-Id"

type entryKey struct{}

type handler struct {
	next http.Handler
	now  func() time.Time
}

// NewHandler wraps a handler with request ids and access logging.
func NewHandler(next http.Handler) http.Handler {
	return &handler{next: next, now: time.Now}
}

// Entry returns the access log entry of a request served by the handler
// returned by NewHandler, or nil. Inner handlers can use it to set the
// App and the View of the entry.
func Entry(r *http.Request) *AccessEntry {
	e, _ := r.Context().Value(entryKey{}).(*AccessEntry)
	return e
}

// RequestID returns the id of a request, as set by the handler returned
// by NewHandler.
func RequestID(r *http.Request) string {
	if e := Entry(r); e != nil {
		return e.RequestID
	}

	return r.Header.Get(RequestIDHeader)
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
		if r.Header == nil {
			r.Header = make(http.Header)
		}

		r.Header.Set(RequestIDHeader, id)
	}

	w.Header().Set(RequestIDHeader, id)

	entry := &AccessEntry{Request: r, RequestTime: start, RequestID: id}
	r = r.WithContext(context.WithValue(r.Context(), entryKey{}, entry))

	lw := &loggingWriter{writer: w}
	h.next.ServeHTTP(lw, r)

	entry.StatusCode = lw.code
	if entry.StatusCode == 0 {
		entry.StatusCode = http.StatusOK
	}

	entry.ResponseSize = lw.bytes
	entry.Duration = h.now().Sub(start)
	LogAccess(entry)
}
