package routing

import (
	"net/http"
	"net/url"
)

// Context carries the request scoped state into the model factories and
// the views. There is no ambient state: everything a factory may need is
// passed in explicitly.
type Context struct {

	// The request being resolved. It can be nil, e.g. when resolving
	// paths outside of a request.
	Request *http.Request

	// Identifies the request in the logs.
	RequestID string

	// The instance whose tree is consuming the path. After resolution,
	// it is the instance of the resolved model.
	Instance *Instance
}

// NewContext creates a context for a request.
func NewContext(r *http.Request, requestID string) *Context {
	return &Context{Request: r, RequestID: requestID}
}

// Link returns the link of a model generated by the current instance.
func (c *Context) Link(model any, view string) (string, error) {
	return c.Instance.Link(model, view)
}

// Query returns the query of the request, or empty values when there is
// no request.
func (c *Context) Query() url.Values {
	if c.Request == nil || c.Request.URL == nil {
		return url.Values{}
	}

	return c.Request.URL.Query()
}
