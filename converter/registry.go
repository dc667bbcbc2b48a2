package converter

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// ErrUnknownConverter is returned when no converter is registered for a
// name or for a type.
var ErrUnknownConverter = errors.New("unknown converter")

// Registry resolves converters by name and by type. Registration happens
// during configuration, lookups are safe for concurrent use afterwards.
type Registry struct {
	byName map[string]Converter
	byType map[reflect.Type]Converter

	// in registration order, for the kind and interface fallbacks
	types []reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Converter),
		byType: make(map[reflect.Type]Converter),
	}
}

// Defaults creates a registry with the int, str, date, datetime and
// identity converters registered.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(reflect.TypeFor[int](), Int)
	r.Register(reflect.TypeFor[string](), String)
	r.Register(reflect.TypeFor[time.Time](), DateTime)
	r.RegisterName(Date)
	r.RegisterName(Identity)
	return r
}

// RegisterName makes a converter available by its name.
func (r *Registry) RegisterName(c Converter) {
	r.byName[c.Name()] = c
}

// Register makes a converter available both by its name and for values of
// type t. Interface types match every value implementing them.
func (r *Registry) Register(t reflect.Type, c Converter) {
	r.RegisterName(c)
	if _, ok := r.byType[t]; !ok {
		r.types = append(r.types, t)
	}

	r.byType[t] = c
}

// Lookup returns the converter registered with the name. A name in the
// form of "[]int" returns a list converter of the named item converter.
func (r *Registry) Lookup(name string) (Converter, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}

	if len(name) > 2 && name[:2] == "[]" {
		item, err := r.Lookup(name[2:])
		if err != nil {
			return nil, err
		}

		return NewList(item), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
}

// ForType returns the converter for the type t, or for its nearest
// registered relative: the element of a pointer, a slice of a convertible
// element, a registered type with the same underlying kind, or a
// registered interface implemented by t.
func (r *Registry) ForType(t reflect.Type) (Converter, error) {
	if t == nil {
		return Identity, nil
	}

	if c, ok := r.byType[t]; ok {
		return c, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		return r.ForType(t.Elem())
	case reflect.Slice, reflect.Array:
		item, err := r.ForType(t.Elem())
		if err != nil {
			return nil, err
		}

		return NewList(item), nil
	}

	for _, rt := range r.types {
		if rt.Kind() != reflect.Interface && rt.Kind() == t.Kind() && rt.PkgPath() == "" {
			return r.byType[rt], nil
		}
	}

	for _, rt := range r.types {
		if rt.Kind() == reflect.Interface && t.Implements(rt) {
			return r.byType[rt], nil
		}
	}

	return nil, fmt.Errorf("%w: no converter for type %v", ErrUnknownConverter, t)
}

// ForValue returns the converter inferred from a default value. A nil
// default gets the identity converter.
func (r *Registry) ForValue(v any) (Converter, error) {
	if v == nil {
		return Identity, nil
	}

	if c, ok := v.(Converter); ok {
		return c, nil
	}

	return r.ForType(reflect.TypeOf(v))
}
