package routing

import (
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/zalando/traject/pathtrie"
)

// Result is the outcome of a successful resolution.
type Result struct {

	// The model created by the factory of the matched path.
	Model any

	// The instance of the application that the model belongs to.
	Instance *Instance

	// The name of the view, without the view prefix. Empty for the
	// default view.
	View string

	// The decoded path variables and query parameters passed to the
	// factory.
	Variables map[string]any
}

// Resolve resolves an escaped request path and its query to a model,
// starting from the root application. The path is normalized first. The
// factories receive ctx, with the instance set to the instance that the
// factory belongs to.
//
// It returns ErrNotFound when the path does not resolve to a model, and a
// pathtrie.BadRequestError when the query parameters are invalid. The
// errors of the factories are returned unchanged.
func Resolve(ctx *Context, root *App, path string, query url.Values) (*Result, error) {
	if ctx == nil {
		ctx = &Context{}
	}

	stack := pathtrie.Stack(path)
	for _, s := range stack {
		if _, err := url.PathUnescape(s); err != nil {
			return nil, fmt.Errorf("%w: invalid path segment %q", ErrNotFound, s)
		}
	}

	current := root.Instance()
	for {
		value, rest, variables := current.App.tree.Consume(stack)
		pv, _ := value.(*pathValue)
		if pv == nil {
			return nil, ErrNotFound
		}

		if pv.mount != nil {
			current = &Instance{App: pv.mount.app, Variables: variables, Parent: current}
			stack = rest
			continue
		}

		view, ok := viewName(rest)
		if !ok {
			return nil, ErrNotFound
		}

		ctx.Instance = current
		args, err := pv.parameters.Parse(query)
		if err != nil {
			return nil, err
		}

		maps.Copy(args, variables)
		model, err := pv.factory(ctx, args)
		if err != nil {
			return nil, err
		}

		if model == nil {
			return nil, ErrNotFound
		}

		return &Result{Model: model, Instance: current, View: view, Variables: args}, nil
	}
}

func viewName(rest []string) (string, bool) {
	switch len(rest) {
	case 0:
		return "", true
	case 1:
		name, err := url.PathUnescape(strings.TrimPrefix(rest[0], pathtrie.ViewPrefix))
		return name, err == nil
	default:
		return "", false
	}
}
