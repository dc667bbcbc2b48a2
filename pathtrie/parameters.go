package pathtrie

import (
	"fmt"
	"maps"
	"net/url"
	"slices"

	"github.com/zalando/traject/converter"
)

// ParameterFactory converts the query parameters of a request to the typed
// arguments of a model factory.
type ParameterFactory struct {
	names      []string
	defaults   map[string]any
	converters map[string]converter.Converter
	required   map[string]bool
	extra      bool
}

// NewParameterFactory creates a parameter factory from the declared
// parameters and their default values. The converter of a parameter is
// taken from the converters argument, or inferred from the default value
// with the registry. A nil default means the identity converter. Required
// parameters need not be in defaults.
//
// When extra is true, the undeclared parameters are collected in a map
// under the ExtraParameters key, converted when the converters argument has
// a converter for them, and as raw strings otherwise.
func NewParameterFactory(defaults map[string]any, converters map[string]converter.Converter, required []string, extra bool, registry *converter.Registry) (*ParameterFactory, error) {
	if registry == nil {
		registry = defaultRegistry
	}

	f := &ParameterFactory{
		defaults:   maps.Clone(defaults),
		converters: maps.Clone(converters),
		required:   make(map[string]bool, len(required)),
		extra:      extra,
	}

	if f.defaults == nil {
		f.defaults = make(map[string]any)
	}

	if f.converters == nil {
		f.converters = make(map[string]converter.Converter)
	}

	for _, name := range required {
		f.required[name] = true
		if _, ok := f.defaults[name]; !ok {
			f.defaults[name] = nil
		}
	}

	for name, d := range f.defaults {
		if _, ok := f.converters[name]; ok {
			continue
		}

		c, err := registry.ForValue(d)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}

		f.converters[name] = c
	}

	f.names = slices.Sorted(maps.Keys(f.defaults))
	return f, nil
}

// Names returns the declared parameter names, sorted.
func (f *ParameterFactory) Names() []string { return slices.Clone(f.names) }

// Converters returns the converters of the parameters.
func (f *ParameterFactory) Converters() map[string]converter.Converter {
	return maps.Clone(f.converters)
}

// Extra tells whether undeclared parameters are collected.
func (f *ParameterFactory) Extra() bool { return f.extra }

// Parse converts the query values. A missing required parameter, or a value
// that cannot be decoded, results in a BadRequestError.
func (f *ParameterFactory) Parse(query url.Values) (map[string]any, error) {
	result := make(map[string]any, len(f.names)+1)
	for _, name := range f.names {
		c := f.converters[name]
		raw := query[name]

		var value any
		_, isList := c.(*converter.List)
		if len(raw) > 0 || isList {
			v, err := c.Decode(raw)
			if err != nil {
				return nil, &BadRequestError{Parameter: name, Err: err}
			}

			value = v
		}

		if c.IsMissing(value) {
			if f.required[name] {
				return nil, &BadRequestError{Parameter: name}
			}

			value = f.defaults[name]
		}

		result[name] = value
	}

	if !f.extra {
		return result, nil
	}

	extra := make(map[string]any)
	for name, raw := range query {
		if _, declared := f.defaults[name]; declared {
			continue
		}

		if c, ok := f.converters[name]; ok {
			v, err := c.Decode(raw)
			if err != nil {
				return nil, &BadRequestError{Parameter: name, Err: err}
			}

			extra[name] = v
			continue
		}

		if len(raw) == 1 {
			extra[name] = raw[0]
		} else {
			extra[name] = slices.Clone(raw)
		}
	}

	result[ExtraParameters] = extra
	return result, nil
}
