package dispatch

import (
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/traject/routing"
)

type item struct{ name string }

func (i *item) String() string { return i.name }

type other struct{}

func render(tag string) ViewFunc {
	return func(_ *routing.Context, w http.ResponseWriter, _ any) error {
		_, err := fmt.Fprint(w, tag)
		return err
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	for _, v := range []View{
		{Model: reflect.TypeFor[fmt.Stringer](), Render: render("stringer")},
		{Model: reflect.TypeFor[fmt.Stringer](), Name: "info", Render: render("stringer info")},
		{Model: reflect.TypeFor[*item](), Render: render("item")},
		{Model: reflect.TypeFor[*item](), Method: "PUT", ContentType: "application/json", Render: render("item put json")},
		{Model: reflect.TypeFor[*item](), Name: "edit", Method: "POST", Render: render("item edit post")},
		{Model: reflect.TypeFor[*item](), Name: "edit", Method: "PUT", Render: render("item edit put")},
	} {
		require.NoError(t, r.Register(v))
	}

	return r
}

func TestLookup(t *testing.T) {
	r := testRegistry(t)
	for _, tt := range []struct {
		title       string
		model       any
		name        string
		method      string
		contentType string
		expect      string
		expectErr   error
		allowed     []string
	}{{
		title:  "exact type",
		model:  &item{},
		method: "GET",
		expect: "item",
	}, {
		title:  "head served by get",
		model:  &item{},
		method: "HEAD",
		expect: "item",
	}, {
		title:  "interface fallback",
		model:  &item{},
		name:   "info",
		method: "GET",
		expect: "stringer info",
	}, {
		title:       "content type",
		model:       &item{},
		method:      "PUT",
		contentType: "application/json; charset=utf-8",
		expect:      "item put json",
	}, {
		title:       "unsupported content type",
		model:       &item{},
		method:      "PUT",
		contentType: "text/plain",
		expectErr:   ErrUnsupportedMediaType,
	}, {
		title:     "method not allowed",
		model:     &item{},
		name:      "edit",
		method:    "GET",
		expectErr: ErrMethodNotAllowed,
		allowed:   []string{"POST", "PUT"},
	}, {
		title:  "named view with method",
		model:  &item{},
		name:   "edit",
		method: "POST",
		expect: "item edit post",
	}, {
		title:     "unknown view",
		model:     &item{},
		name:      "delete",
		method:    "GET",
		expectErr: ErrViewNotFound,
	}, {
		title:     "unknown model",
		model:     &other{},
		method:    "GET",
		expectErr: ErrViewNotFound,
	}, {
		title:     "nil model",
		method:    "GET",
		expectErr: ErrViewNotFound,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			v, err := r.Lookup(tt.model, tt.name, tt.method, tt.contentType)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				if tt.allowed != nil {
					var merr *MethodError
					require.ErrorAs(t, err, &merr)
					assert.Equal(t, tt.allowed, merr.Allowed)
				}

				return
			}

			require.NoError(t, err)
			rec := &recorder{}
			require.NoError(t, v.Render(nil, rec, tt.model))
			assert.Equal(t, tt.expect, rec.body)
		})
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.Register(View{Model: reflect.TypeFor[*item](), Render: render("replaced")}))

	v, err := r.Lookup(&item{}, "", "GET", "")
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, v.Render(nil, rec, nil))
	assert.Equal(t, "replaced", rec.body)
}

func TestRegisterInvalid(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(View{Render: render("x")}), errInvalidView)
	assert.ErrorIs(t, r.Register(View{Model: reflect.TypeFor[*item]()}), errInvalidView)
}

type recorder struct {
	header http.Header
	body   string
}

func (r *recorder) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}

	return r.header
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body += string(b)
	return len(b), nil
}

func (r *recorder) WriteHeader(int) {}
