package pathtrie

import (
	"regexp"
	"strings"
)

var placeholderRx = regexp.MustCompile(`\{(\w+)\}`)

// templateGetter returns the value of a placeholder, and false when the
// value is missing.
type templateGetter func(string) (string, bool)

// template represents a path with named placeholders of the format:
//
//	documents/{id}/rev{rev}
type template struct {
	template     string
	placeholders []string
}

func newTemplate(t string) *template {
	matches := placeholderRx.FindAllStringSubmatch(t, -1)
	placeholders := make([]string, len(matches))
	for index, placeholder := range matches {
		placeholders[index] = placeholder[1]
	}

	return &template{template: t, placeholders: placeholders}
}

// apply resolves the placeholders with the getter. When a placeholder is
// missing, it returns its name and false.
func (t *template) apply(get templateGetter) (string, string, bool) {
	result := t.template
	for _, placeholder := range t.placeholders {
		value, ok := get(placeholder)
		if !ok {
			return "", placeholder, false
		}

		result = strings.Replace(result, "{"+placeholder+"}", value, 1)
	}

	return result, "", true
}
