/*
Package converter implements the bidirectional codecs between the string
values found in paths and query strings and the typed values passed to
model factories.

A converter decodes a list of raw strings into a value, and encodes a value
back into a list of strings. Scalar converters accept exactly one raw value.
List converters wrap a scalar converter, apply it element-wise and are never
considered missing, not even when empty.

Converters are looked up in a Registry either by their name, as used in path
patterns like "{id:int}", or by the type of a default value.
*/
package converter

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

const (
	// DateFormat is the format of date values in paths and query strings.
	DateFormat = "20060102"

	// DateTimeFormat is the format of datetime values in paths and query
	// strings.
	DateTimeFormat = "20060102T150405"
)

var (
	// ErrInvalidValue is returned when a raw value cannot be decoded.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidType is returned when a value of the wrong type is passed
	// to an encoder.
	ErrInvalidType = errors.New("invalid type")
)

// Converter instances translate between raw string values and typed values.
type Converter interface {

	// Name identifies the converter in path patterns and in conflict
	// detection.
	Name() string

	// Decode converts the raw values to a typed value.
	Decode(values []string) (any, error)

	// Encode converts a typed value to raw values.
	Encode(value any) ([]string, error)

	// IsMissing tells whether a decoded or passed in value counts as
	// absent.
	IsMissing(value any) bool
}

// Scalar converts a single raw value.
type Scalar struct {
	name   string
	decode func(string) (any, error)
	encode func(any) (string, error)
}

// List applies a scalar converter to every value of a list.
type List struct {
	item Converter
}

// NewScalar creates a converter for single values.
func NewScalar(name string, decode func(string) (any, error), encode func(any) (string, error)) *Scalar {
	return &Scalar{name: name, decode: decode, encode: encode}
}

func (c *Scalar) Name() string { return c.name }

func (c *Scalar) Decode(values []string) (any, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: %s expects exactly one value, got %d", ErrInvalidValue, c.name, len(values))
	}

	v, err := c.decode(values[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q: %w", ErrInvalidValue, c.name, values[0], err)
	}

	return v, nil
}

func (c *Scalar) Encode(value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}

	s, err := c.encode(value)
	if err != nil {
		return nil, err
	}

	return []string{s}, nil
}

func (c *Scalar) IsMissing(value any) bool {
	return value == nil
}

// NewList creates a list converter from a scalar converter.
func NewList(item Converter) *List {
	return &List{item: item}
}

func (l *List) Name() string { return "[]" + l.item.Name() }

// Item returns the wrapped converter.
func (l *List) Item() Converter { return l.item }

func (l *List) Decode(values []string) (any, error) {
	result := make([]any, 0, len(values))
	for _, v := range values {
		d, err := l.item.Decode([]string{v})
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

func (l *List) Encode(value any) ([]string, error) {
	if value == nil {
		return []string{}, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %s expects a list, got %T", ErrInvalidType, l.Name(), value)
	}

	result := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e, err := l.item.Encode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}

		result = append(result, e...)
	}

	return result, nil
}

// IsMissing is always false for lists.
func (l *List) IsMissing(any) bool { return false }

func decodeInt(s string) (any, error) { return strconv.Atoi(s) }

func encodeInt(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	default:
		return "", fmt.Errorf("%w: int expected, got %T", ErrInvalidType, v)
	}
}

func decodeString(s string) (any, error) { return s, nil }

func encodeString(v any) (string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return "", fmt.Errorf("%w: string expected, got %T", ErrInvalidType, v)
	}

	return rv.String(), nil
}

func encodeAny(v any) (string, error) {
	switch vv := v.(type) {
	case string:
		return vv, nil
	case fmt.Stringer:
		return vv.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func timeDecoder(format string) func(string) (any, error) {
	return func(s string) (any, error) {
		return time.Parse(format, s)
	}
}

func timeEncoder(format string) func(any) (string, error) {
	return func(v any) (string, error) {
		t, ok := v.(time.Time)
		if !ok {
			return "", fmt.Errorf("%w: time expected, got %T", ErrInvalidType, v)
		}

		return t.Format(format), nil
	}
}

var (
	// Int converts decimal integers.
	Int = NewScalar("int", decodeInt, encodeInt)

	// String converts text without changes.
	String = NewScalar("str", decodeString, encodeString)

	// Date converts dates in the format of DateFormat.
	Date = NewScalar("date", timeDecoder(DateFormat), timeEncoder(DateFormat))

	// DateTime converts timestamps in the format of DateTimeFormat.
	DateTime = NewScalar("datetime", timeDecoder(DateTimeFormat), timeEncoder(DateTimeFormat))

	// Identity keeps raw values as strings, and formats any value when
	// encoding. Used for parameters without a typed default.
	Identity = NewScalar("identity", decodeString, encodeAny)
)
