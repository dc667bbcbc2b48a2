// Copyright 2015 Zalando SE
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pathtrie

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/zalando/traject/converter"
)

const (
	// ViewPrefix marks a path segment naming a view. Such segments are
	// never matched against the tree.
	ViewPrefix = "+"

	variableMarker       = "{}"
	defaultConverterName = "str"
)

var identifierRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Step is the compiled pattern of a single path segment, e.g. "a{foo:int}b".
// Steps are immutable after creation.
type Step struct {
	pattern     string
	text        string
	generalized string
	parts       []string
	names       []string
	converters  map[string]converter.Converter
	rx          *regexp.Regexp
}

type placeholder struct {
	name, tag string
}

// splits a segment pattern into the literal parts and the placeholders
// between them. There is always one more part than placeholders.
func parseSegment(segment string) ([]string, []placeholder, error) {
	var (
		parts   []string
		holders []placeholder
		current strings.Builder
	)

	fail := func(reason string) ([]string, []placeholder, error) {
		return nil, nil, &PatternError{Segment: segment, Reason: reason}
	}

	seen := make(map[string]bool)
	for i := 0; i < len(segment); i++ {
		switch segment[i] {
		case '}':
			return fail("unbalanced '}'")
		case '{':
			end := strings.IndexByte(segment[i+1:], '}')
			if end < 0 {
				return fail("unclosed '{'")
			}

			content := segment[i+1 : i+1+end]
			if strings.IndexByte(content, '{') >= 0 {
				return fail("nested '{'")
			}

			name, tag, typed := strings.Cut(content, ":")
			if !identifierRx.MatchString(name) {
				return fail(fmt.Sprintf("invalid variable name %q", name))
			}

			if typed && tag == "" {
				return fail(fmt.Sprintf("empty converter name for %q", name))
			}

			if seen[name] {
				return fail(fmt.Sprintf("duplicate variable name %q", name))
			}

			if len(holders) > 0 && current.Len() == 0 {
				return fail("variables must be separated by literal text")
			}

			seen[name] = true
			parts = append(parts, current.String())
			current.Reset()
			holders = append(holders, placeholder{name: name, tag: tag})
			i += end + 1
		default:
			current.WriteByte(segment[i])
		}
	}

	parts = append(parts, current.String())
	return parts, holders, nil
}

func join(parts []string, names []string, marker func(string) string) string {
	var b strings.Builder
	for i, p := range parts {
		b.WriteString(p)
		if i < len(names) {
			b.WriteString(marker(names[i]))
		}
	}

	return b.String()
}

// NewStep parses a segment pattern. Variables are typed either in the
// pattern, like "{id:int}", or by the converters argument; untyped variables
// use the "str" converter. When registry is nil, the default registry is
// used.
func NewStep(segment string, converters map[string]converter.Converter, registry *converter.Registry) (*Step, error) {
	if strings.HasPrefix(segment, ViewPrefix) {
		return nil, &PatternError{Segment: segment, Reason: "the view prefix " + ViewPrefix + " is reserved"}
	}

	if strings.Contains(segment, "/") {
		return nil, &PatternError{Segment: segment, Reason: "a step cannot contain '/'"}
	}

	parts, holders, err := parseSegment(segment)
	if err != nil {
		return nil, err
	}

	if registry == nil {
		registry = defaultRegistry
	}

	s := &Step{
		pattern:    segment,
		parts:      parts,
		converters: make(map[string]converter.Converter, len(holders)),
	}

	rx := []string{"^"}
	for i, h := range holders {
		c, err := stepConverter(segment, h, converters, registry)
		if err != nil {
			return nil, err
		}

		s.names = append(s.names, h.name)
		s.converters[h.name] = c
		rx = append(rx, regexp.QuoteMeta(parts[i]), "(.+)")
	}

	rx = append(rx, regexp.QuoteMeta(parts[len(parts)-1]), "$")
	s.rx = regexp.MustCompile(strings.Join(rx, ""))
	s.text = join(parts, s.names, func(name string) string { return "{" + name + "}" })
	s.generalized = join(parts, s.names, func(string) string { return variableMarker })
	return s, nil
}

func stepConverter(segment string, h placeholder, converters map[string]converter.Converter, registry *converter.Registry) (converter.Converter, error) {
	c, err := taggedConverter(segment, h, converters, registry)
	if err != nil {
		return nil, err
	}

	// a path segment holds a single value
	if _, isList := c.(*converter.List); isList {
		return nil, &PatternError{Segment: segment, Reason: fmt.Sprintf("list converter %s for the path variable %q", c.Name(), h.name)}
	}

	return c, nil
}

func taggedConverter(segment string, h placeholder, converters map[string]converter.Converter, registry *converter.Registry) (converter.Converter, error) {
	declared, hasDeclared := converters[h.name]
	if h.tag == "" {
		if hasDeclared {
			return declared, nil
		}

		if c, err := registry.Lookup(defaultConverterName); err == nil {
			return c, nil
		}

		return converter.String, nil
	}

	c, err := registry.Lookup(h.tag)
	if err != nil {
		return nil, &PatternError{Segment: segment, Reason: err.Error()}
	}

	if hasDeclared && declared.Name() != c.Name() {
		return nil, &PatternError{
			Segment: segment,
			Reason:  fmt.Sprintf("variable %q typed %s in the pattern and %s by the converters", h.name, c.Name(), declared.Name()),
		}
	}

	return c, nil
}

// String returns the pattern the step was created from.
func (s *Step) String() string { return s.pattern }

// Generalized returns the pattern with every variable replaced by the same
// marker.
func (s *Step) Generalized() string { return s.generalized }

// Names returns the variable names in order of appearance.
func (s *Step) Names() []string { return slices.Clone(s.names) }

// Parts returns the literal text around the variables.
func (s *Step) Parts() []string { return slices.Clone(s.parts) }

// Converter returns the converter of a variable.
func (s *Step) Converter(name string) converter.Converter { return s.converters[name] }

// HasVariables tells whether the step contains any variables.
func (s *Step) HasVariables() bool { return len(s.names) > 0 }

// Equal tells whether two steps have the same literal text and variable
// names. Type tags are not compared.
func (s *Step) Equal(o *Step) bool {
	return slices.Equal(s.parts, o.parts) && slices.Equal(s.names, o.names)
}

// Match matches a concrete path segment. On success, it returns the decoded
// values of the variables. A value that the converter rejects means no match.
func (s *Step) Match(segment string) (bool, map[string]any) {
	if !s.HasVariables() {
		return segment == s.pattern, nil
	}

	m := s.rx.FindStringSubmatch(segment)
	if m == nil {
		return false, nil
	}

	variables := make(map[string]any, len(s.names))
	for i, name := range s.names {
		v, err := s.converters[name].Decode([]string{m[i+1]})
		if err != nil {
			return false, nil
		}

		variables[name] = v
	}

	return true, variables
}

func (s *Step) literalLength() int {
	n := 0
	for _, p := range s.parts {
		n += utf8.RuneCountInString(p)
	}

	return n
}

// Compare orders steps from the most specific to the least specific. It
// returns a negative number when s is more specific than o:
//
// - when o matches the pattern of s but s does not match the pattern of
// o, s is more specific;
//
// - otherwise the step with more literal text is more specific;
//
// - otherwise the literal parts are compared in descending order.
func (s *Step) Compare(o *Step) int {
	if slices.Equal(s.parts, o.parts) {
		return 0
	}

	sMatchesO := s.rx.MatchString(o.text)
	oMatchesS := o.rx.MatchString(s.text)
	switch {
	case oMatchesS && !sMatchesO:
		return -1
	case sMatchesO && !oMatchesS:
		return 1
	}

	if sl, ol := s.literalLength(), o.literalLength(); sl != ol {
		if sl > ol {
			return -1
		}

		return 1
	}

	return -slices.Compare(s.parts, o.parts)
}

// Less tells whether s should be tried before o.
func (s *Step) Less(o *Step) bool {
	return s.Compare(o) < 0
}
