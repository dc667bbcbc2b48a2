package routing

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/traject/converter"
	"github.com/zalando/traject/pathtrie"
)

// Factory creates the model of a path from the decoded path variables and
// query parameters. Returning nil means that the model does not exist.
type Factory func(ctx *Context, variables map[string]any) (any, error)

// DeferFunc returns the instance that generates the links of a model that
// the current instance has no inverse path for. Returning nil means no link.
type DeferFunc func(current *Instance, model any) (*Instance, error)

// PathSpec declares a path of an application.
type PathSpec struct {

	// The path pattern, e.g. "documents/{id:int}".
	Pattern string

	// Creates the model. Mandatory.
	Factory Factory

	// The type of the model, used for generating links. Interface types
	// apply to every model implementing them.
	Model reflect.Type

	// Alternative to Model, for models implementing pathtrie.Keyer.
	Key string

	// Extracts the path variables and the query parameters from the
	// model. Mandatory when Model or Key is set.
	Variables pathtrie.VariablesFunc

	// Converters of the path variables and query parameters not typed
	// otherwise.
	Converters map[string]converter.Converter

	// The query parameters and their default values. The type of the
	// default value selects the converter, nil means raw strings.
	Parameters map[string]any

	// Parameters that must be present in the query.
	Required []string

	// When set, the undeclared query parameters are passed to the
	// factory in a map under pathtrie.ExtraParameters.
	ExtraParameters bool
}

// MountSpec declares the mount of an application into another one.
type MountSpec struct {

	// The path pattern of the mount point, e.g. "wikis/{wiki}".
	Pattern string

	// The mounted application.
	App *App

	// Converters of the variables not typed in the pattern.
	Converters map[string]converter.Converter
}

type pathValue struct {
	pattern    string
	factory    Factory
	parameters *pathtrie.ParameterFactory
	mount      *mount
}

type mount struct {
	pattern string
	app     *App
	inverse *pathtrie.Inverse
}

// App is an application: a set of paths and mounts with their own path
// tree. Apps are configured once, and are safe for concurrent use after
// that.
type App struct {
	name          string
	registry      *converter.Registry
	tree          *pathtrie.Tree
	mounts        map[*App]*mount
	deferred      map[reflect.Type]DeferFunc
	deferredTypes []reflect.Type
	root          *Instance
}

// NewApp creates an application. When registry is nil, the default
// converters are used.
func NewApp(name string, registry *converter.Registry) *App {
	if registry == nil {
		registry = converter.Defaults()
	}

	a := &App{
		name:     name,
		registry: registry,
		tree:     pathtrie.New(registry),
		mounts:   make(map[*App]*mount),
		deferred: make(map[reflect.Type]DeferFunc),
	}

	a.root = &Instance{App: a}
	return a
}

// Name returns the name of the application.
func (a *App) Name() string { return a.name }

// Registry returns the converter registry of the application.
func (a *App) Registry() *converter.Registry { return a.registry }

// Tree returns the path tree of the application.
func (a *App) Tree() *pathtrie.Tree { return a.tree }

// Instance returns the instance of the application used as the root of
// the resolution.
func (a *App) Instance() *Instance { return a.root }

func (a *App) definitionError(pattern string, err error) error {
	return &DefinitionError{App: a.name, Pattern: pattern, Original: err}
}

// AddPath registers a path of the application.
func (a *App) AddPath(spec PathSpec) error {
	if spec.Factory == nil {
		return a.definitionError(spec.Pattern, errMissingFactory)
	}

	if (spec.Model != nil || spec.Key != "") && spec.Variables == nil {
		return a.definitionError(spec.Pattern, errMissingVariables)
	}

	params, err := pathtrie.NewParameterFactory(spec.Parameters, spec.Converters, spec.Required, spec.ExtraParameters, a.registry)
	if err != nil {
		return a.definitionError(spec.Pattern, err)
	}

	v := &pathValue{pattern: spec.Pattern, factory: spec.Factory, parameters: params}
	if err := a.tree.Add(spec.Pattern, v, spec.Converters); err != nil {
		return a.definitionError(spec.Pattern, err)
	}

	if spec.Model != nil || spec.Key != "" {
		converters := params.Converters()
		maps.Copy(converters, spec.Converters)
		names := params.Names()
		if spec.Model != nil {
			err = a.tree.RegisterInverse(spec.Model, spec.Pattern, spec.Variables, names, converters)
		} else {
			err = a.tree.RegisterKeyedInverse(spec.Key, spec.Pattern, spec.Variables, names, converters)
		}

		if err != nil {
			return a.definitionError(spec.Pattern, err)
		}
	}

	log.Debugf("%s: path added: %s", a.name, spec.Pattern)
	return nil
}

// Mount mounts another application at a path pattern.
func (a *App) Mount(spec MountSpec) error {
	if spec.App == nil {
		return a.definitionError(spec.Pattern, errMissingApp)
	}

	if len(pathtrie.Segments(spec.Pattern)) == 0 {
		return a.definitionError(spec.Pattern, errEmptyMount)
	}

	if _, ok := a.mounts[spec.App]; ok {
		return a.definitionError(spec.Pattern, fmt.Errorf("%w: %s", errAlreadyMounted, spec.App.name))
	}

	inverse, err := pathtrie.NewInverse(spec.Pattern, mountVariables, nil, spec.Converters, a.registry)
	if err != nil {
		return a.definitionError(spec.Pattern, err)
	}

	m := &mount{pattern: spec.Pattern, app: spec.App, inverse: inverse}
	v := &pathValue{pattern: spec.Pattern, mount: m}
	if err := a.tree.Add(spec.Pattern, v, spec.Converters); err != nil {
		return a.definitionError(spec.Pattern, err)
	}

	a.mounts[spec.App] = m
	log.Debugf("%s: mounted %s at %s", a.name, spec.App.name, spec.Pattern)
	return nil
}

func mountVariables(m any) (map[string]any, error) {
	return m.(*Instance).Variables, nil
}

// DeferLinks registers where the links of the models of a type are
// generated, when the application has no inverse path for them.
func (a *App) DeferLinks(model reflect.Type, f DeferFunc) {
	if _, ok := a.deferred[model]; !ok {
		a.deferredTypes = append(a.deferredTypes, model)
	}

	a.deferred[model] = f
}

func (a *App) deferFor(model any) (DeferFunc, bool) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, false
	}

	if f, ok := a.deferred[t]; ok {
		return f, true
	}

	if t.Kind() == reflect.Pointer {
		if f, ok := a.deferred[t.Elem()]; ok {
			return f, true
		}
	}

	for _, dt := range a.deferredTypes {
		if dt.Kind() == reflect.Interface && t.Implements(dt) {
			return a.deferred[dt], true
		}
	}

	return nil, false
}

// Patterns lists the patterns of the application, including the patterns of
// the mounted applications prefixed with the mount pattern.
func (a *App) Patterns() []string {
	return a.patterns("", make(map[*App]bool))
}

func (a *App) patterns(prefix string, visited map[*App]bool) []string {
	if visited[a] {
		return nil
	}

	visited[a] = true
	defer delete(visited, a)

	var p []string
	for _, r := range a.tree.Routes() {
		full := joinPath(prefix, r.Pattern)
		v := r.Value.(*pathValue)
		if v.mount == nil {
			p = append(p, full)
			continue
		}

		p = append(p, v.mount.app.patterns(full, visited)...)
	}

	return p
}

func joinPath(prefix, p string) string {
	switch {
	case prefix == "":
		return p
	case p == "":
		return prefix
	default:
		return strings.TrimSuffix(prefix, "/") + "/" + p
	}
}
