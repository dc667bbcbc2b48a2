package routefile

import (
	"fmt"
	"maps"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/traject/converter"
	"github.com/zalando/traject/routing"
)

// Document is the model of the paths defined in route files.
type Document struct {

	// The name of the application and the id of the path.
	App string
	ID  string

	// The path variables and the query parameters.
	Variables map[string]any

	// The body defined in the route file.
	Body map[string]any

	// The other paths of the same application, to list their links.
	related []*PathDef
}

// InverseKey identifies the path of the document for link generation.
func (d *Document) InverseKey() string {
	return inverseKey(d.App, d.ID)
}

func inverseKey(app, id string) string { return app + "/" + id }

func documentVariables(m any) (map[string]any, error) {
	d, ok := m.(*Document)
	if !ok {
		return nil, fmt.Errorf("unexpected model: %T", m)
	}

	return d.Variables, nil
}

func lookupConverters(registry *converter.Registry, names map[string]string) (map[string]converter.Converter, error) {
	if len(names) == 0 {
		return nil, nil
	}

	c := make(map[string]converter.Converter, len(names))
	for variable, name := range names {
		cv, err := registry.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("converter of %q: %w", variable, err)
		}

		c[variable] = cv
	}

	return c, nil
}

// Build creates the application tree of a definition. When registry is
// nil, the default converters are used.
func Build(def *AppDef, registry *converter.Registry) (*routing.App, error) {
	if registry == nil {
		registry = converter.Defaults()
	}

	app := routing.NewApp(def.Name, registry)
	for _, p := range def.Paths {
		converters, err := lookupConverters(registry, p.Converters)
		if err != nil {
			return nil, fmt.Errorf("%s [%s]: %w", def.Name, p.Pattern, err)
		}

		if err := app.AddPath(routing.PathSpec{
			Pattern:         p.Pattern,
			Key:             inverseKey(def.Name, p.ID),
			Factory:         documentFactory(def, p),
			Variables:       documentVariables,
			Converters:      converters,
			Parameters:      p.Parameters,
			Required:        p.Required,
			ExtraParameters: p.ExtraParameters,
		}); err != nil {
			return nil, err
		}
	}

	for _, m := range def.Mounts {
		child, err := Build(m.App, registry)
		if err != nil {
			return nil, err
		}

		converters, err := lookupConverters(registry, m.Converters)
		if err != nil {
			return nil, fmt.Errorf("%s [%s]: %w", def.Name, m.Pattern, err)
		}

		if err := app.Mount(routing.MountSpec{Pattern: m.Pattern, App: child, Converters: converters}); err != nil {
			return nil, err
		}
	}

	log.Debugf("route file application built: %s", def.Name)
	return app, nil
}

func documentFactory(def *AppDef, p *PathDef) routing.Factory {
	return func(_ *routing.Context, variables map[string]any) (any, error) {
		return &Document{
			App:       def.Name,
			ID:        p.ID,
			Variables: maps.Clone(variables),
			Body:      p.Body,
			related:   def.Paths,
		}, nil
	}
}

// LoadApp loads a route file and builds its application tree.
func LoadApp(filename string, registry *converter.Registry) (*routing.App, error) {
	def, err := Load(filename)
	if err != nil {
		return nil, err
	}

	return Build(def, registry)
}
