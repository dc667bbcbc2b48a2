package routefile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// AppDef is the definition of an application in a route file.
type AppDef struct {
	Name   string      `yaml:"name"`
	Paths  []*PathDef  `yaml:"paths"`
	Mounts []*MountDef `yaml:"mounts"`
}

// PathDef is the definition of a path.
type PathDef struct {
	ID              string            `yaml:"id"`
	Pattern         string            `yaml:"pattern"`
	Parameters      map[string]any    `yaml:"parameters"`
	Required        []string          `yaml:"required"`
	Converters      map[string]string `yaml:"converters"`
	ExtraParameters bool              `yaml:"extraParameters"`
	Body            map[string]any    `yaml:"body"`
}

// MountDef is the definition of a mounted application.
type MountDef struct {
	Pattern    string            `yaml:"pattern"`
	Converters map[string]string `yaml:"converters"`
	App        *AppDef           `yaml:"app"`
}

var errInvalidDefinition = errors.New("invalid route file")

// Parse parses a route file.
func Parse(data []byte) (*AppDef, error) {
	var def AppDef
	if err := yaml.UnmarshalStrict(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidDefinition, err)
	}

	if err := def.validate(); err != nil {
		return nil, err
	}

	def.normalize()
	return &def, nil
}

// Load reads and parses a route file.
func Load(filename string) (*AppDef, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	def, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return def, nil
}

func (def *AppDef) validate() error {
	if def.Name == "" {
		return fmt.Errorf("%w: missing application name", errInvalidDefinition)
	}

	ids := make(map[string]bool)
	for _, p := range def.Paths {
		if p == nil || p.ID == "" {
			return fmt.Errorf("%w: %s: missing path id", errInvalidDefinition, def.Name)
		}

		if ids[p.ID] {
			return fmt.Errorf("%w: %s: duplicate path id: %s", errInvalidDefinition, def.Name, p.ID)
		}

		ids[p.ID] = true
	}

	for _, m := range def.Mounts {
		if m == nil || m.App == nil {
			return fmt.Errorf("%w: %s: missing mounted application", errInvalidDefinition, def.Name)
		}

		if err := m.App.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (def *AppDef) normalize() {
	for _, p := range def.Paths {
		for k, v := range p.Parameters {
			p.Parameters[k] = normalizeValue(v)
		}

		for k, v := range p.Body {
			p.Body[k] = normalizeValue(v)
		}
	}

	for _, m := range def.Mounts {
		m.App.normalize()
	}
}

// yaml.v2 decodes the nested maps with interface keys, which cannot be
// encoded as JSON
func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(vv))
		for k, mv := range vv {
			m[fmt.Sprint(k)] = normalizeValue(mv)
		}

		return m
	case []any:
		for i := range vv {
			vv[i] = normalizeValue(vv[i])
		}

		return vv
	default:
		return v
	}
}
