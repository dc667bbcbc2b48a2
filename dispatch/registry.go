package dispatch

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"slices"

	"github.com/zalando/traject/routing"
)

// ViewFunc renders a model.
type ViewFunc func(ctx *routing.Context, w http.ResponseWriter, model any) error

// View declares how a model is rendered.
type View struct {

	// The type of the models served by the view. Interface types apply
	// to every model implementing them.
	Model reflect.Type

	// Name of the view. The empty name is the default view.
	Name string

	// The request method. Defaults to GET. The GET views serve HEAD
	// requests, too.
	Method string

	// When set, the view serves only requests with this body media type.
	ContentType string

	// Renders the model. Mandatory.
	Render ViewFunc
}

var (
	// ErrViewNotFound is returned when no view has the requested name.
	ErrViewNotFound = errors.New("view not found")

	// ErrMethodNotAllowed is returned when a view with the requested
	// name exists, but not for the method of the request.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrUnsupportedMediaType is returned when a view with the requested
	// name and method exists, but not for the body type of the request.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	errInvalidView = errors.New("invalid view")
)

// MethodError is returned, wrapping ErrMethodNotAllowed, when the view
// exists only for other methods.
type MethodError struct {
	Allowed []string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%v, allowed: %v", ErrMethodNotAllowed, e.Allowed)
}

func (e *MethodError) Unwrap() error { return ErrMethodNotAllowed }

// Registry holds the views. Views are registered during the startup, and
// the registry is safe for concurrent lookups after that.
type Registry struct {
	views map[reflect.Type][]*View
	types []reflect.Type
}

// NewRegistry creates an empty view registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[reflect.Type][]*View)}
}

// Register adds a view. Registering a view with the same model type and
// predicates as an existing one replaces it.
func (r *Registry) Register(v View) error {
	if v.Model == nil {
		return fmt.Errorf("%w: missing model type", errInvalidView)
	}

	if v.Render == nil {
		return fmt.Errorf("%w: missing render function", errInvalidView)
	}

	if v.Method == "" {
		v.Method = http.MethodGet
	}

	views, ok := r.views[v.Model]
	if !ok {
		r.types = append(r.types, v.Model)
	}

	i := slices.IndexFunc(views, func(e *View) bool {
		return e.Name == v.Name && e.Method == v.Method && e.ContentType == v.ContentType
	})

	if i >= 0 {
		views[i] = &v
	} else {
		views = append(views, &v)
	}

	r.views[v.Model] = views
	return nil
}

func (r *Registry) candidates(model any) [][]*View {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil
	}

	var c [][]*View
	if v, ok := r.views[t]; ok {
		c = append(c, v)
	}

	if t.Kind() == reflect.Pointer {
		if v, ok := r.views[t.Elem()]; ok {
			c = append(c, v)
		}
	}

	for _, it := range r.types {
		if it.Kind() == reflect.Interface && t.Implements(it) {
			c = append(c, r.views[it])
		}
	}

	return c
}

func methodMatches(viewMethod, method string) bool {
	return viewMethod == method || viewMethod == http.MethodGet && method == http.MethodHead
}

func contentTypeMatches(viewType, contentType string) bool {
	if viewType == "" {
		return true
	}

	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == viewType
}

// Lookup finds the view of a model. The views of the more specific model
// types take precedence. contentType is the value of the Content-Type
// header of the request.
func (r *Registry) Lookup(model any, name, method, contentType string) (*View, error) {
	var (
		allowed     []string
		nameFound   bool
		methodFound bool
	)

	for _, views := range r.candidates(model) {
		for _, v := range views {
			if v.Name != name {
				continue
			}

			nameFound = true
			if !methodMatches(v.Method, method) {
				if !slices.Contains(allowed, v.Method) {
					allowed = append(allowed, v.Method)
				}

				continue
			}

			methodFound = true
			if contentTypeMatches(v.ContentType, contentType) {
				return v, nil
			}
		}
	}

	switch {
	case methodFound:
		return nil, ErrUnsupportedMediaType
	case nameFound:
		slices.Sort(allowed)
		return nil, &MethodError{Allowed: allowed}
	default:
		return nil, ErrViewNotFound
	}
}
