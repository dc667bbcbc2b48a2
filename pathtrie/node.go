package pathtrie

import (
	"fmt"
	"maps"
	"slices"
)

type node struct {
	step *Step

	// exact matches of steps without variables
	literals map[string]*node

	// steps with variables, most specific first
	variables []*node

	value any
}

func (n *node) add(step *Step) (*node, error) {
	if !step.HasVariables() {
		if child, ok := n.literals[step.pattern]; ok {
			return child, nil
		}

		if n.literals == nil {
			n.literals = make(map[string]*node)
		}

		child := &node{step: step}
		n.literals[step.pattern] = child
		return child, nil
	}

	for _, child := range n.variables {
		if child.step.Equal(step) {
			if err := checkConverters(child.step, step); err != nil {
				return nil, err
			}

			return child, nil
		}

		if child.step.generalized == step.generalized {
			return nil, &TrajectError{
				Pattern: step.pattern,
				Reason:  fmt.Sprintf("step conflicts with %q", child.step.pattern),
			}
		}
	}

	i := 0
	for i < len(n.variables) && !step.Less(n.variables[i].step) {
		i++
	}

	child := &node{step: step}
	n.variables = slices.Insert(n.variables, i, child)
	return child, nil
}

func checkConverters(existing, step *Step) error {
	for _, name := range step.names {
		if e, s := existing.converters[name].Name(), step.converters[name].Name(); e != s {
			return &TrajectError{
				Pattern: step.pattern,
				Reason:  fmt.Sprintf("variable %q is converted by %s and by %s at the same position", name, e, s),
			}
		}
	}

	return nil
}

// resolve finds the child matching a segment. Literal children are checked
// first, then the variable children in order. The variables of the first
// matching step are merged into the argument map. The first match is final.
func (n *node) resolve(segment string, variables map[string]any) *node {
	if child, ok := n.literals[segment]; ok {
		return child
	}

	for _, child := range n.variables {
		if ok, v := child.step.Match(segment); ok {
			maps.Copy(variables, v)
			return child
		}
	}

	return nil
}
