package pathtrie

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/zalando/traject/converter"
)

// ExtraParameters is the key of the undeclared query parameters, both in
// the result of ParameterFactory.Parse and in the variables extracted for
// link generation.
const ExtraParameters = "extra_parameters"

// VariablesFunc extracts the values of the path variables and of the query
// parameters from a model.
type VariablesFunc func(model any) (map[string]any, error)

// Keyer is implemented by models that share a Go type, but need different
// inverse paths. The key is looked up before the type of the model.
type Keyer interface {
	InverseKey() string
}

// Inverse generates the path and the query parameters of a model.
type Inverse struct {
	pattern    string
	template   *template
	names      []string
	parameters []string
	converters map[string]converter.Converter
	variables  VariablesFunc
	registry   *converter.Registry
}

// NewInverse creates the inverse of a path pattern. Path variables are
// encoded with the converters of the pattern, parameters with the
// converters argument, or, when not specified there, with the identity
// converter.
func NewInverse(pattern string, variables VariablesFunc, parameters []string, converters map[string]converter.Converter, registry *converter.Registry) (*Inverse, error) {
	if registry == nil {
		registry = defaultRegistry
	}

	inv := &Inverse{
		pattern:    pattern,
		parameters: parameters,
		converters: make(map[string]converter.Converter),
		variables:  variables,
		registry:   registry,
	}

	var texts []string
	for _, segment := range Segments(pattern) {
		step, err := NewStep(segment, converters, registry)
		if err != nil {
			return nil, err
		}

		for _, name := range step.names {
			inv.names = append(inv.names, name)
			inv.converters[name] = step.converters[name]
		}

		literals := make([]string, len(step.parts))
		for i, part := range step.parts {
			literals[i] = url.PathEscape(part)
		}

		texts = append(texts, join(literals, step.names, func(name string) string { return "{" + name + "}" }))
	}

	for _, name := range parameters {
		if _, isPath := inv.converters[name]; isPath {
			return nil, &PatternError{Segment: pattern, Reason: fmt.Sprintf("%q is both a path variable and a parameter", name)}
		}

		if c, ok := converters[name]; ok {
			inv.converters[name] = c
		} else {
			inv.converters[name] = converter.Identity
		}
	}

	inv.template = newTemplate(strings.Join(texts, "/"))
	return inv, nil
}

// Pattern returns the pattern the inverse was created from.
func (inv *Inverse) Pattern() string { return inv.pattern }

// Path returns the path, without a leading slash, and the query
// parameters of a model. Parameters that are missing according to their
// converter are omitted. A missing path variable is an error.
func (inv *Inverse) Path(model any) (string, url.Values, error) {
	variables, err := inv.variables(model)
	if err != nil {
		return "", nil, &LinkError{Model: modelName(model), Reason: "failed to extract variables", Err: err}
	}

	var encodeErr error
	path, missing, ok := inv.template.apply(func(name string) (string, bool) {
		c := inv.converters[name]
		v, ok := variables[name]
		if !ok || c.IsMissing(v) {
			return "", false
		}

		e, err := c.Encode(v)
		if err != nil {
			encodeErr = err
			return "", false
		}

		if len(e) != 1 || e[0] == "" {
			return "", false
		}

		return url.PathEscape(e[0]), true
	})

	if encodeErr != nil {
		return "", nil, &LinkError{Model: modelName(model), Reason: fmt.Sprintf("failed to encode path variable %q", missing), Err: encodeErr}
	}

	if !ok {
		return "", nil, &LinkError{Model: modelName(model), Reason: fmt.Sprintf("missing path variable %q", missing)}
	}

	path = escapeViewPrefix(path)
	params := make(url.Values)
	for _, name := range inv.parameters {
		if err := encodeParameter(params, name, variables[name], inv.converters[name]); err != nil {
			return "", nil, &LinkError{Model: modelName(model), Reason: fmt.Sprintf("failed to encode parameter %q", name), Err: err}
		}
	}

	if extra, ok := variables[ExtraParameters].(map[string]any); ok {
		for name, v := range extra {
			c, ok := inv.converters[name]
			if !ok {
				if c, err = inv.registry.ForValue(v); err != nil {
					c = converter.Identity
				}
			}

			if err := encodeParameter(params, name, v, c); err != nil {
				return "", nil, &LinkError{Model: modelName(model), Reason: fmt.Sprintf("failed to encode parameter %q", name), Err: err}
			}
		}
	}

	return path, params, nil
}

// segments starting with '+' would be taken for view names.
func escapeViewPrefix(path string) string {
	if !strings.Contains(path, ViewPrefix) {
		return path
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, ViewPrefix) {
			segments[i] = "%2B" + s[len(ViewPrefix):]
		}
	}

	return strings.Join(segments, "/")
}

func encodeParameter(params url.Values, name string, v any, c converter.Converter) error {
	if c.IsMissing(v) {
		return nil
	}

	e, err := c.Encode(v)
	if err != nil {
		return err
	}

	params[name] = e
	return nil
}

func modelName(model any) string {
	if k, ok := model.(Keyer); ok {
		return fmt.Sprintf("%T(%s)", model, k.InverseKey())
	}

	return fmt.Sprintf("%T", model)
}

type inverseIndex struct {
	byKey  map[string]*Inverse
	byType map[reflect.Type]*Inverse

	// registration order, for the interface lookup
	types []reflect.Type
}

func newInverseIndex() *inverseIndex {
	return &inverseIndex{
		byKey:  make(map[string]*Inverse),
		byType: make(map[reflect.Type]*Inverse),
	}
}

func (ix *inverseIndex) lookup(model any) (*Inverse, bool) {
	if k, ok := model.(Keyer); ok {
		if inv, ok := ix.byKey[k.InverseKey()]; ok {
			return inv, true
		}
	}

	t := reflect.TypeOf(model)
	if t == nil {
		return nil, false
	}

	if inv, ok := ix.byType[t]; ok {
		return inv, true
	}

	if t.Kind() == reflect.Pointer {
		if inv, ok := ix.byType[t.Elem()]; ok {
			return inv, true
		}
	}

	for _, it := range ix.types {
		if it.Kind() == reflect.Interface && t.Implements(it) {
			return ix.byType[it], true
		}
	}

	return nil, false
}

// RegisterInverse registers the inverse path for models of a type. An
// interface type applies to every model implementing it, unless a more
// specific inverse is registered.
func (t *Tree) RegisterInverse(model reflect.Type, pattern string, variables VariablesFunc, parameters []string, converters map[string]converter.Converter) error {
	inv, err := NewInverse(pattern, variables, parameters, converters, t.registry)
	if err != nil {
		return err
	}

	if _, ok := t.inverse.byType[model]; !ok {
		t.inverse.types = append(t.inverse.types, model)
	}

	t.inverse.byType[model] = inv
	return nil
}

// RegisterKeyedInverse registers the inverse path for the models returning
// key from InverseKey.
func (t *Tree) RegisterKeyedInverse(key string, pattern string, variables VariablesFunc, parameters []string, converters map[string]converter.Converter) error {
	inv, err := NewInverse(pattern, variables, parameters, converters, t.registry)
	if err != nil {
		return err
	}

	t.inverse.byKey[key] = inv
	return nil
}

// Inverse returns the inverse registered for a model.
func (t *Tree) Inverse(model any) (*Inverse, bool) {
	return t.inverse.lookup(model)
}

// Path returns the path and the query parameters of a model. When no
// inverse is registered for the model, the error wraps ErrNoInverse.
func (t *Tree) Path(model any) (string, url.Values, error) {
	inv, ok := t.inverse.lookup(model)
	if !ok {
		return "", nil, &LinkError{Model: modelName(model), Reason: "not found", Err: ErrNoInverse}
	}

	return inv.Path(model)
}
