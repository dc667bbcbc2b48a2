package converter_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/traject/converter"
)

func TestScalarDecode(t *testing.T) {
	for _, tt := range []struct {
		name      string
		converter converter.Converter
		values    []string
		expected  any
		fail      bool
	}{{
		name:      "int",
		converter: converter.Int,
		values:    []string{"42"},
		expected:  42,
	}, {
		name:      "negative int",
		converter: converter.Int,
		values:    []string{"-3"},
		expected:  -3,
	}, {
		name:      "invalid int",
		converter: converter.Int,
		values:    []string{"x"},
		fail:      true,
	}, {
		name:      "no value",
		converter: converter.Int,
		fail:      true,
	}, {
		name:      "too many values",
		converter: converter.String,
		values:    []string{"a", "b"},
		fail:      true,
	}, {
		name:      "string",
		converter: converter.String,
		values:    []string{"héllo"},
		expected:  "héllo",
	}, {
		name:      "date",
		converter: converter.Date,
		values:    []string{"20240229"},
		expected:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}, {
		name:      "invalid date",
		converter: converter.Date,
		values:    []string{"2024-02-29"},
		fail:      true,
	}, {
		name:      "datetime",
		converter: converter.DateTime,
		values:    []string{"20240229T134501"},
		expected:  time.Date(2024, 2, 29, 13, 45, 1, 0, time.UTC),
	}, {
		name:      "identity",
		converter: converter.Identity,
		values:    []string{"12"},
		expected:  "12",
	}} {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.converter.Decode(tt.values)
			if tt.fail {
				assert.ErrorIs(t, err, converter.ErrInvalidValue)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestScalarEncode(t *testing.T) {
	type myInt int64

	for _, tt := range []struct {
		name      string
		converter converter.Converter
		value     any
		expected  []string
		fail      bool
	}{{
		name:      "int",
		converter: converter.Int,
		value:     42,
		expected:  []string{"42"},
	}, {
		name:      "named int",
		converter: converter.Int,
		value:     myInt(7),
		expected:  []string{"7"},
	}, {
		name:      "int from string",
		converter: converter.Int,
		value:     "42",
		fail:      true,
	}, {
		name:      "nil encodes to nothing",
		converter: converter.Int,
		value:     nil,
		expected:  nil,
	}, {
		name:      "date",
		converter: converter.Date,
		value:     time.Date(2011, 1, 2, 3, 4, 5, 0, time.UTC),
		expected:  []string{"20110102"},
	}, {
		name:      "datetime",
		converter: converter.DateTime,
		value:     time.Date(2011, 1, 2, 3, 4, 5, 0, time.UTC),
		expected:  []string{"20110102T030405"},
	}, {
		name:      "identity formats anything",
		converter: converter.Identity,
		value:     3.5,
		expected:  []string{"3.5"},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.converter.Encode(tt.value)
			if tt.fail {
				assert.ErrorIs(t, err, converter.ErrInvalidType)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestMissing(t *testing.T) {
	assert.True(t, converter.Int.IsMissing(nil))
	assert.False(t, converter.Int.IsMissing(0))
	assert.False(t, converter.String.IsMissing(""))

	l := converter.NewList(converter.Int)
	assert.False(t, l.IsMissing(nil))
	assert.False(t, l.IsMissing([]any{}))
}

func TestList(t *testing.T) {
	l := converter.NewList(converter.Int)
	assert.Equal(t, "[]int", l.Name())

	v, err := l.Decode([]string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, v)

	v, err = l.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)

	_, err = l.Decode([]string{"1", "x"})
	assert.ErrorIs(t, err, converter.ErrInvalidValue)

	e, err := l.Encode([]int{4, 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5"}, e)

	e, err = l.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, e)

	_, err = l.Encode(4)
	assert.ErrorIs(t, err, converter.ErrInvalidType)
}

func TestRegistryLookup(t *testing.T) {
	r := converter.Defaults()
	for _, name := range []string{"int", "str", "date", "datetime", "identity"} {
		c, err := r.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	c, err := r.Lookup("[]date")
	require.NoError(t, err)
	assert.Equal(t, "[]date", c.Name())

	_, err = r.Lookup("float")
	assert.ErrorIs(t, err, converter.ErrUnknownConverter)

	_, err = r.Lookup("[]float")
	assert.ErrorIs(t, err, converter.ErrUnknownConverter)
}

type stringer interface{ String() string }

type version struct{ major, minor int }

func (v version) String() string { return "v" }

func TestRegistryInference(t *testing.T) {
	type id int
	type name string

	r := converter.Defaults()
	for _, tt := range []struct {
		title    string
		value    any
		expected string
		fail     bool
	}{
		{title: "nil", value: nil, expected: "identity"},
		{title: "int", value: 1, expected: "int"},
		{title: "string", value: "x", expected: "str"},
		{title: "time", value: time.Time{}, expected: "datetime"},
		{title: "named int", value: id(3), expected: "int"},
		{title: "named string", value: name("n"), expected: "str"},
		{title: "pointer", value: new(int), expected: "int"},
		{title: "slice", value: []int{}, expected: "[]int"},
		{title: "explicit converter", value: converter.Date, expected: "date"},
		{title: "unknown", value: 1.5, fail: true},
		{title: "struct", value: version{}, fail: true},
	} {
		t.Run(tt.title, func(t *testing.T) {
			c, err := r.ForValue(tt.value)
			if tt.fail {
				assert.ErrorIs(t, err, converter.ErrUnknownConverter)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, c.Name())
		})
	}
}

func TestRegistryInterface(t *testing.T) {
	r := converter.NewRegistry()
	vc := converter.NewScalar("version", func(s string) (any, error) { return s, nil }, func(v any) (string, error) {
		return v.(stringer).String(), nil
	})

	r.Register(reflect.TypeFor[stringer](), vc)
	c, err := r.ForValue(version{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "version", c.Name())

	_, err = r.ForValue(1)
	assert.ErrorIs(t, err, converter.ErrUnknownConverter)
}
