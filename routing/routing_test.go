package routing

import (
	"errors"
	"net/url"
	"os"
	"reflect"
	"testing"

	"github.com/AlexanderYastrebov/noleak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/traject/converter"
	"github.com/zalando/traject/pathtrie"
)

func TestMain(m *testing.M) {
	os.Exit(noleak.CheckMain(m))
}

type document struct {
	id   int
	lang string
}

type page struct {
	wiki string
	name string
}

type user struct {
	name string
}

func documentFactory(_ *Context, v map[string]any) (any, error) {
	if v["id"].(int) == 404 {
		return nil, nil
	}

	return &document{id: v["id"].(int), lang: v["lang"].(string)}, nil
}

func documentVariables(m any) (map[string]any, error) {
	d := m.(*document)
	return map[string]any{"id": d.id, "lang": d.lang}, nil
}

func pageFactory(ctx *Context, v map[string]any) (any, error) {
	return &page{wiki: ctx.Instance.Variables["wiki"].(string), name: v["name"].(string)}, nil
}

func pageVariables(m any) (map[string]any, error) {
	return map[string]any{"name": m.(*page).name}, nil
}

type fixture struct {
	root *App
	wiki *App
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	root := NewApp("root", nil)
	require.NoError(t, root.AddPath(PathSpec{
		Pattern:    "documents/{id:int}",
		Model:      reflect.TypeFor[*document](),
		Factory:    documentFactory,
		Variables:  documentVariables,
		Parameters: map[string]any{"lang": "en"},
	}))

	require.NoError(t, root.AddPath(PathSpec{
		Pattern: "",
		Factory: func(*Context, map[string]any) (any, error) { return "index", nil },
	}))

	wiki := NewApp("wiki", nil)
	require.NoError(t, wiki.AddPath(PathSpec{
		Pattern:   "pages/{name}",
		Model:     reflect.TypeFor[*page](),
		Factory:   pageFactory,
		Variables: pageVariables,
	}))

	require.NoError(t, root.Mount(MountSpec{Pattern: "wikis/{wiki}", App: wiki}))

	wiki.DeferLinks(reflect.TypeFor[*document](), func(current *Instance, _ any) (*Instance, error) {
		return current.Parent, nil
	})

	return fixture{root: root, wiki: wiki}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	for _, tt := range []struct {
		title     string
		path      string
		query     url.Values
		model     any
		view      string
		app       string
		expectErr error
	}{{
		title: "root",
		path:  "/",
		model: "index",
		app:   "root",
	}, {
		title: "empty path",
		path:  "",
		model: "index",
		app:   "root",
	}, {
		title: "document with default parameter",
		path:  "/documents/42",
		model: &document{id: 42, lang: "en"},
		app:   "root",
	}, {
		title: "document with parameter",
		path:  "/documents/42",
		query: url.Values{"lang": []string{"de"}},
		model: &document{id: 42, lang: "de"},
		app:   "root",
	}, {
		title: "view with prefix",
		path:  "/documents/42/+edit",
		model: &document{id: 42, lang: "en"},
		view:  "edit",
		app:   "root",
	}, {
		title: "view without prefix",
		path:  "/documents/42/edit",
		model: &document{id: 42, lang: "en"},
		view:  "edit",
		app:   "root",
	}, {
		title: "view of the root",
		path:  "/+info",
		model: "index",
		view:  "info",
		app:   "root",
	}, {
		title: "normalized",
		path:  "//documents/./x/../42/",
		model: &document{id: 42, lang: "en"},
		app:   "root",
	}, {
		title: "mounted",
		path:  "/wikis/main/pages/home",
		model: &page{wiki: "main", name: "home"},
		app:   "wiki",
	}, {
		title: "escaped segment",
		path:  "/wikis/main/pages/a%2Fb",
		model: &page{wiki: "main", name: "a/b"},
		app:   "wiki",
	}, {
		title: "escaped view prefix",
		path:  "/wikis/main/pages/%2Bplus",
		model: &page{wiki: "main", name: "+plus"},
		app:   "wiki",
	}, {
		title: "escaped view name",
		path:  "/documents/42/+a%20b",
		model: &document{id: 42, lang: "en"},
		view:  "a b",
		app:   "root",
	}, {
		title: "mounted with view",
		path:  "/wikis/main/pages/home/+history",
		model: &page{wiki: "main", name: "home"},
		view:  "history",
		app:   "wiki",
	}, {
		title:     "too many remaining segments",
		path:      "/documents/42/a/b",
		expectErr: ErrNotFound,
	}, {
		title:     "variable not decoded",
		path:      "/documents/abc",
		expectErr: ErrNotFound,
	}, {
		title:     "invalid escape",
		path:      "/documents/%zz",
		expectErr: ErrNotFound,
	}, {
		title:     "factory returns nil",
		path:      "/documents/404",
		expectErr: ErrNotFound,
	}, {
		title:     "no path at the mount root",
		path:      "/wikis/main",
		expectErr: ErrNotFound,
	}, {
		title:     "invalid parameter",
		path:      "/documents/42",
		query:     url.Values{"lang": []string{"de", "en"}},
		expectErr: pathtrie.ErrBadRequest,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			ctx := NewContext(nil, "test")
			r, err := Resolve(ctx, f.root, tt.path, tt.query)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.model, r.Model)
			assert.Equal(t, tt.view, r.View)
			assert.Equal(t, tt.app, r.Instance.App.Name())
			assert.Same(t, r.Instance, ctx.Instance)
		})
	}
}

func TestResolveFactoryError(t *testing.T) {
	errDatabase := errors.New("database unavailable")
	app := NewApp("root", nil)
	require.NoError(t, app.AddPath(PathSpec{
		Pattern: "users/{name}",
		Factory: func(*Context, map[string]any) (any, error) { return nil, errDatabase },
	}))

	_, err := Resolve(nil, app, "/users/alice", nil)
	assert.ErrorIs(t, err, errDatabase)
}

func TestResolveMissingRequiredParameter(t *testing.T) {
	app := NewApp("root", nil)
	require.NoError(t, app.AddPath(PathSpec{
		Pattern:  "search",
		Required: []string{"q"},
		Factory: func(_ *Context, v map[string]any) (any, error) {
			return v["q"], nil
		},
	}))

	_, err := Resolve(nil, app, "/search", nil)
	var bre *pathtrie.BadRequestError
	require.ErrorAs(t, err, &bre)
	assert.Equal(t, "q", bre.Parameter)

	r, err := Resolve(nil, app, "/search", url.Values{"q": []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "go", r.Model)
}

func TestResolveExtraParameters(t *testing.T) {
	app := NewApp("root", nil)
	require.NoError(t, app.AddPath(PathSpec{
		Pattern:         "search",
		ExtraParameters: true,
		Factory: func(_ *Context, v map[string]any) (any, error) {
			return v[pathtrie.ExtraParameters], nil
		},
	}))

	r, err := Resolve(nil, app, "/search", url.Values{"a": []string{"1"}, "b": []string{"2", "3"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": []string{"2", "3"}}, r.Model)
}

func TestLink(t *testing.T) {
	f := newFixture(t)
	rootInstance := f.root.Instance()
	wikiInstance, err := rootInstance.Child(f.wiki, map[string]any{"wiki": "main"})
	require.NoError(t, err)

	for _, tt := range []struct {
		title     string
		instance  *Instance
		model     any
		view      string
		expect    string
		expectErr error
	}{{
		title:    "document",
		instance: rootInstance,
		model:    &document{id: 42, lang: "de"},
		expect:   "/documents/42?lang=de",
	}, {
		title:    "document with view",
		instance: rootInstance,
		model:    &document{id: 42, lang: "de"},
		view:     "edit",
		expect:   "/documents/42/+edit?lang=de",
	}, {
		title:    "mounted page",
		instance: wikiInstance,
		model:    &page{name: "home"},
		expect:   "/wikis/main/pages/home",
	}, {
		title:    "escaped variable",
		instance: wikiInstance,
		model:    &page{name: "a/b"},
		expect:   "/wikis/main/pages/a%2Fb",
	}, {
		title:    "deferred to the parent",
		instance: wikiInstance,
		model:    &document{id: 1, lang: "en"},
		expect:   "/documents/1?lang=en",
	}, {
		title:     "no inverse in the root",
		instance:  rootInstance,
		model:     &page{name: "home"},
		expectErr: pathtrie.ErrNoInverse,
	}, {
		title:     "no inverse and no deferred link",
		instance:  wikiInstance,
		model:     &user{name: "alice"},
		expectErr: pathtrie.ErrNoInverse,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			l, err := tt.instance.Link(tt.model, tt.view)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expect, l)
		})
	}
}

func TestLinkRoundTrip(t *testing.T) {
	f := newFixture(t)
	wikiInstance, err := f.root.Instance().Child(f.wiki, map[string]any{"wiki": "a b"})
	require.NoError(t, err)

	p := &page{wiki: "a b", name: "x?y"}
	l, err := wikiInstance.Link(p, "")
	require.NoError(t, err)

	u, err := url.Parse(l)
	require.NoError(t, err)

	r, err := Resolve(nil, f.root, u.EscapedPath(), u.Query())
	require.NoError(t, err)
	assert.Equal(t, p, r.Model)
}

func TestLinkRoundTripViewPrefix(t *testing.T) {
	f := newFixture(t)
	for _, tt := range []struct {
		wiki, name, view string
	}{
		{wiki: "main", name: "+plus"},
		{wiki: "main", name: "+"},
		{wiki: "main", name: "%2B"},
		{wiki: "+w", name: "a+b", view: "edit"},
		{wiki: "main", name: "+plus", view: "+raw"},
	} {
		t.Run(tt.wiki+"/"+tt.name, func(t *testing.T) {
			wikiInstance, err := f.root.Instance().Child(f.wiki, map[string]any{"wiki": tt.wiki})
			require.NoError(t, err)

			p := &page{wiki: tt.wiki, name: tt.name}
			l, err := wikiInstance.Link(p, tt.view)
			require.NoError(t, err)

			u, err := url.Parse(l)
			require.NoError(t, err)

			r, err := Resolve(nil, f.root, u.EscapedPath(), u.Query())
			require.NoError(t, err, "link %s", l)
			assert.Equal(t, p, r.Model)
			assert.Equal(t, tt.view, r.View)
		})
	}
}

func TestLinkFromContext(t *testing.T) {
	f := newFixture(t)
	ctx := NewContext(nil, "test")
	_, err := Resolve(ctx, f.root, "/wikis/main/pages/home", nil)
	require.NoError(t, err)

	l, err := ctx.Link(&page{name: "other"}, "")
	require.NoError(t, err)
	assert.Equal(t, "/wikis/main/pages/other", l)
}

func TestDeferLoop(t *testing.T) {
	app := NewApp("root", nil)
	app.DeferLinks(reflect.TypeFor[*user](), func(current *Instance, _ any) (*Instance, error) {
		return current, nil
	})

	_, err := app.Instance().Link(&user{name: "alice"}, "")
	assert.ErrorIs(t, err, ErrDeferLoop)
}

func TestDeferToSibling(t *testing.T) {
	root := NewApp("root", nil)
	users := NewApp("users", nil)
	require.NoError(t, users.AddPath(PathSpec{
		Pattern:   "{name}",
		Model:     reflect.TypeFor[*user](),
		Factory:   func(_ *Context, v map[string]any) (any, error) { return &user{name: v["name"].(string)}, nil },
		Variables: func(m any) (map[string]any, error) { return map[string]any{"name": m.(*user).name}, nil },
	}))

	wiki := NewApp("wiki", nil)
	require.NoError(t, root.Mount(MountSpec{Pattern: "users", App: users}))
	require.NoError(t, root.Mount(MountSpec{Pattern: "wikis/{wiki}", App: wiki}))
	wiki.DeferLinks(reflect.TypeFor[*user](), func(current *Instance, _ any) (*Instance, error) {
		return current.Sibling(users, nil)
	})

	w, err := root.Instance().Child(wiki, map[string]any{"wiki": "main"})
	require.NoError(t, err)

	l, err := w.Link(&user{name: "alice"}, "")
	require.NoError(t, err)
	assert.Equal(t, "/users/alice", l)
}

func TestDefinitionErrors(t *testing.T) {
	factory := func(*Context, map[string]any) (any, error) { return nil, nil }
	other := NewApp("other", nil)

	for _, tt := range []struct {
		title  string
		add    func(*App) error
		reason string
		is     error
	}{{
		title:  "missing factory",
		add:    func(a *App) error { return a.AddPath(PathSpec{Pattern: "a"}) },
		reason: "missing_factory",
	}, {
		title: "missing inverse variables",
		add: func(a *App) error {
			return a.AddPath(PathSpec{Pattern: "a", Factory: factory, Model: reflect.TypeFor[*user]()})
		},
		reason: "missing_inverse_variables",
	}, {
		title:  "invalid pattern",
		add:    func(a *App) error { return a.AddPath(PathSpec{Pattern: "{a", Factory: factory}) },
		reason: "other",
		is:     pathtrie.ErrInvalidPattern,
	}, {
		title: "converter conflict",
		add: func(a *App) error {
			if err := a.AddPath(PathSpec{Pattern: "{x:int}", Factory: factory}); err != nil {
				return err
			}

			return a.AddPath(PathSpec{Pattern: "{x}/y", Factory: factory})
		},
		reason: "other",
		is:     pathtrie.ErrConflict,
	}, {
		title: "unknown parameter type",
		add: func(a *App) error {
			return a.AddPath(PathSpec{Pattern: "a", Factory: factory, Parameters: map[string]any{"p": struct{}{}}})
		},
		reason: "other",
		is:     converter.ErrUnknownConverter,
	}, {
		title:  "missing app",
		add:    func(a *App) error { return a.Mount(MountSpec{Pattern: "a"}) },
		reason: "missing_app",
	}, {
		title:  "empty mount pattern",
		add:    func(a *App) error { return a.Mount(MountSpec{Pattern: "/", App: other}) },
		reason: "empty_mount_pattern",
	}, {
		title: "already mounted",
		add: func(a *App) error {
			if err := a.Mount(MountSpec{Pattern: "a", App: other}); err != nil {
				return err
			}

			return a.Mount(MountSpec{Pattern: "b", App: other})
		},
		reason: "already_mounted",
	}} {
		t.Run(tt.title, func(t *testing.T) {
			err := tt.add(NewApp("test", nil))

			var derr *DefinitionError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, "test", derr.App)
			assert.Equal(t, tt.reason, derr.Reason())
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestChildNotMounted(t *testing.T) {
	_, err := NewApp("root", nil).Instance().Child(NewApp("other", nil), nil)
	assert.ErrorIs(t, err, errNotMounted)
}

func TestPatterns(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []string{
		"",
		"documents/{id:int}",
		"wikis/{wiki}/pages/{name}",
	}, f.root.Patterns())
}
