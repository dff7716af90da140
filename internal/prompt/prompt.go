// Package prompt holds the prompt templates driving the research pipeline
// and a small named-placeholder renderer.
//
// Templates use {name} placeholders. Literal braces that are part of the
// template text (e.g. JSON examples) are written as {{ and }} and restored
// during rendering.
package prompt

import (
	"strings"
)

// Render substitutes {name} placeholders in tmpl with the given values.
// Unknown placeholders are left untouched. {{ and }} render as literal braces.
func Render(tmpl string, values map[string]string) string {
	const (
		openEscape  = "\x00OPEN\x00"
		closeEscape = "\x00CLOSE\x00"
	)

	s := strings.ReplaceAll(tmpl, "{{", openEscape)
	s = strings.ReplaceAll(s, "}}", closeEscape)

	for name, value := range values {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}

	s = strings.ReplaceAll(s, openEscape, "{")
	s = strings.ReplaceAll(s, closeEscape, "}")
	return s
}
