package pathtrie

import (
	"slices"
	"strings"
)

// Route is a pattern with a bound value, as returned by Routes.
type Route struct {
	Pattern string
	Value   any
}

// Routes lists the patterns with a bound value in lookup order: literal
// children sorted alphabetically, then the variable children from the most
// specific.
func (t *Tree) Routes() []Route {
	return collectRoutes(t.root, nil, nil)
}

// Patterns returns the patterns of Routes.
func (t *Tree) Patterns() []string {
	var p []string
	for _, r := range t.Routes() {
		p = append(p, r.Pattern)
	}

	return p
}

func collectRoutes(n *node, path []string, routes []Route) []Route {
	if n.step != nil {
		path = append(path, n.step.pattern)
	}

	if n.value != nil {
		routes = append(routes, Route{Pattern: strings.Join(path, "/"), Value: n.value})
	}

	keys := make([]string, 0, len(n.literals))
	for k := range n.literals {
		keys = append(keys, k)
	}

	slices.Sort(keys)
	for _, k := range keys {
		routes = collectRoutes(n.literals[k], slices.Clip(path), routes)
	}

	for _, child := range n.variables {
		routes = collectRoutes(child, slices.Clip(path), routes)
	}

	return routes
}
