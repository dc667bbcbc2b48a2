package routing

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/zalando/traject/pathtrie"
)

const maxDeferDepth = 16

// Instance is an application bound to the variables of the mount it was
// reached through. The instance of the root application has no parent and
// no variables.
type Instance struct {
	App       *App
	Variables map[string]any
	Parent    *Instance
}

// Child returns the instance of an application mounted into the
// application of the current instance, bound to the mount variables.
func (i *Instance) Child(app *App, variables map[string]any) (*Instance, error) {
	if app == nil {
		return nil, errMissingApp
	}

	if _, ok := i.App.mounts[app]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", errNotMounted, app.name, i.App.name)
	}

	return &Instance{App: app, Variables: variables, Parent: i}, nil
}

// Sibling returns the instance of another application mounted into the
// parent of the current instance.
func (i *Instance) Sibling(app *App, variables map[string]any) (*Instance, error) {
	if i.Parent == nil {
		return nil, fmt.Errorf("%w: %s has no parent", errNotMounted, i.App.name)
	}

	return i.Parent.Child(app, variables)
}

// Root returns the instance at the top of the parent chain.
func (i *Instance) Root() *Instance {
	for i.Parent != nil {
		i = i.Parent
	}

	return i
}

func (i *Instance) mountPath() (string, error) {
	if i.Parent == nil {
		return "", nil
	}

	m, ok := i.Parent.App.mounts[i.App]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", errNotMounted, i.App.name, i.Parent.App.name)
	}

	p, _, err := m.inverse.Path(i)
	if err != nil {
		return "", err
	}

	prefix, err := i.Parent.mountPath()
	if err != nil {
		return "", err
	}

	return joinPath(prefix, p), nil
}

// LinkValues returns the absolute path and the query parameters of a
// model. When the application has no inverse path for the model, the
// deferred links registered with App.DeferLinks are followed.
func (i *Instance) LinkValues(model any) (string, url.Values, error) {
	current := i
	for range maxDeferDepth {
		p, query, err := current.App.tree.Path(model)
		if err == nil {
			prefix, err := current.mountPath()
			if err != nil {
				return "", nil, err
			}

			return "/" + joinPath(prefix, p), query, nil
		}

		if !errors.Is(err, pathtrie.ErrNoInverse) {
			return "", nil, err
		}

		f, ok := current.App.deferFor(model)
		if !ok {
			return "", nil, err
		}

		next, derr := f(current, model)
		if derr != nil {
			return "", nil, derr
		}

		if next == nil {
			return "", nil, err
		}

		current = next
	}

	return "", nil, ErrDeferLoop
}

// Link returns the link of a model, with the view name appended when not
// empty.
func (i *Instance) Link(model any, view string) (string, error) {
	p, query, err := i.LinkValues(model)
	if err != nil {
		return "", err
	}

	if view != "" {
		p = joinPath(p, pathtrie.ViewPrefix+url.PathEscape(view))
	}

	if len(query) > 0 {
		p += "?" + query.Encode()
	}

	return p, nil
}
