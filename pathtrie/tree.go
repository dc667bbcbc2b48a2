/*
Package pathtrie implements a tree lookup from paths to the values
registered for them, and the inverse of it: generating paths from the
values.

A path pattern consists of segments separated by '/'. A segment is literal
text mixed with variables in the form of {name} or {name:converter}, e.g:

	documents/{id:int}/rev{rev:int}

Literal segments are looked up by exact match. Segments with variables are
tried from the most specific to the least specific step, and the first
match wins. There is no backtracking: once a segment is matched, the lookup
continues from the matched node.

Lookup happens on a path stack, where the last item is the next segment to
consume. The lookup is greedy, it consumes as many segments as the tree
allows, and returns the value of the last matched node together with the
unconsumed segments. The segments on the stack are path escaped, and they
are unescaped only when matched against the tree. Segments starting with
the view prefix '+' are never consumed, while an escaped '+' ("%2B") is
matched as text.

The tree is built during configuration and must not be modified while it
serves lookups. Lookups are safe for concurrent use.
*/
package pathtrie

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dimfeld/httppath"

	"github.com/zalando/traject/converter"
)

var defaultRegistry = converter.Defaults()

// Tree stores values associated to path patterns.
type Tree struct {
	root     *node
	registry *converter.Registry
	inverse  *inverseIndex
}

// New creates an empty tree. The registry resolves the converter names used
// in the patterns. When nil, the default registry is used.
func New(registry *converter.Registry) *Tree {
	if registry == nil {
		registry = defaultRegistry
	}

	return &Tree{
		root:     &node{},
		registry: registry,
		inverse:  newInverseIndex(),
	}
}

// Registry returns the converter registry of the tree.
func (t *Tree) Registry() *converter.Registry { return t.registry }

// Segments splits a pattern or a path into segments, ignoring the leading,
// the trailing and the repeated slashes.
func Segments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return segments
}

// Stack normalizes a request path and returns its segments in stack order,
// the first segment of the path last.
func Stack(path string) []string {
	if path == "" {
		path = "/"
	}

	segments := Segments(httppath.Clean(path))
	slices.Reverse(segments)
	return segments
}

// Add associates a value with a path pattern. The converters argument types
// the variables that are not typed in the pattern itself.
//
// Adding the same pattern again replaces the value. It fails with a
// PatternError when a segment is malformed, and with a TrajectError when a
// segment conflicts with the already registered ones.
func (t *Tree) Add(pattern string, value any, converters map[string]converter.Converter) error {
	var steps []*Step
	for _, segment := range Segments(pattern) {
		step, err := NewStep(segment, converters, t.registry)
		if err != nil {
			return err
		}

		steps = append(steps, step)
	}

	n := t.root
	for _, step := range steps {
		var err error
		n, err = n.add(step)
		if err != nil {
			return fmt.Errorf("adding %q: %w", pattern, err)
		}
	}

	n.value = value
	return nil
}

// Consume resolves the escaped segments of the stack, starting from its
// end, until no child node matches. It returns the value of the last
// matched node, which may be nil, the unconsumed part of the stack and the
// variables decoded from the consumed segments. A segment that is not
// validly escaped is not matched.
//
// The returned stack shares its backing array with the argument.
func (t *Tree) Consume(stack []string) (any, []string, map[string]any) {
	variables := make(map[string]any)
	n := t.root
	for len(stack) > 0 {
		segment := stack[len(stack)-1]
		if strings.HasPrefix(segment, ViewPrefix) {
			break
		}

		u, err := url.PathUnescape(segment)
		if err != nil {
			break
		}

		next := n.resolve(u, variables)
		if next == nil {
			break
		}

		n = next
		stack = stack[:len(stack)-1]
	}

	return n.value, stack, variables
}

// Lookup consumes a path. It is a shortcut of Consume(Stack(path)).
func (t *Tree) Lookup(path string) (any, []string, map[string]any) {
	return t.Consume(Stack(path))
}
