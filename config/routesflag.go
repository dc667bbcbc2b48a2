package config

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/zalando/traject/routefile"
)

// routesFlag holds an application definition given inline, either as a
// command line flag or as a mapping in the config file.
type routesFlag struct {
	def   *routefile.AppDef
	value string // only for Set
}

func (f *routesFlag) Set(value string) error {
	def, err := routefile.Parse([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to parse inline routes: %w", err)
	}

	f.def = def
	f.value = value
	return nil
}

func (f *routesFlag) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}

	if v == nil {
		f.def = nil
		return nil
	}

	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	def, err := routefile.Parse(b)
	if err != nil {
		return fmt.Errorf("failed to parse inline routes: %w", err)
	}

	f.def = def
	return nil
}

func (f *routesFlag) String() string {
	if f == nil {
		return ""
	}

	return f.value
}

// Get returns the parsed definition, or nil when not set.
func (f *routesFlag) Get() *routefile.AppDef {
	return f.def
}
