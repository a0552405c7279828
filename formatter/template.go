// formatter/template.go

package formatter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadTemplate is returned when a template cannot be parsed.
	ErrBadTemplate = errors.New("invalid template")
	// ErrUnknownField is returned when a template names a field the document lacks.
	ErrUnknownField = errors.New("template field not in document")
)

// DefaultTemplate renders the computed message unchanged.
const DefaultTemplate = "%(message)s"

// templatePart is either literal text or one %(field)verb placeholder.
type templatePart struct {
	literal string
	field   string
	spec    string // fmt directive, e.g. "%-8v"
}

// Template is a compiled output pattern such as "%(message)s from %(levelname)s".
// Placeholders take the form %(field)<flags><width><verb>; "%%" is a literal percent.
// The 's' verb renders any value the way %v does.
type Template struct {
	source string
	parts  []templatePart
}

// NewTemplate compiles a template pattern.
func NewTemplate(pattern string) (*Template, error) {
	t := &Template{source: pattern}
	var lit strings.Builder

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}
		if i+1 >= len(pattern) || pattern[i+1] != '(' {
			return nil, fmt.Errorf("%w: bare '%%' at offset %d in %q", ErrBadTemplate, i, pattern)
		}

		end := strings.IndexByte(pattern[i+2:], ')')
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed '%%(' at offset %d in %q", ErrBadTemplate, i, pattern)
		}
		field := pattern[i+2 : i+2+end]
		if field == "" {
			return nil, fmt.Errorf("%w: empty field name at offset %d in %q", ErrBadTemplate, i, pattern)
		}

		// directive after ')': flags, width, precision, verb
		j := i + 2 + end + 1
		start := j
		for j < len(pattern) && strings.IndexByte("+-# 0123456789.", pattern[j]) >= 0 {
			j++
		}
		if j >= len(pattern) {
			return nil, fmt.Errorf("%w: missing verb for field %q in %q", ErrBadTemplate, field, pattern)
		}
		verb := pattern[j]
		if verb == 's' {
			verb = 'v'
		}

		if lit.Len() > 0 {
			t.parts = append(t.parts, templatePart{literal: lit.String()})
			lit.Reset()
		}
		t.parts = append(t.parts, templatePart{
			field: field,
			spec:  "%" + pattern[start:j] + string(verb),
		})
		i = j
	}

	if lit.Len() > 0 {
		t.parts = append(t.parts, templatePart{literal: lit.String()})
	}
	return t, nil
}

// MustTemplate is like NewTemplate but panics on error.
func MustTemplate(pattern string) *Template {
	t, err := NewTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the source pattern.
func (t *Template) String() string {
	return t.source
}

// Render substitutes document fields into the template.
func (t *Template) Render(doc Document) (string, error) {
	var sb strings.Builder
	for _, p := range t.parts {
		if p.field == "" {
			sb.WriteString(p.literal)
			continue
		}
		value, ok := doc[p.field]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownField, p.field)
		}
		rendered, ok := sprintf(p.spec, value)
		if !ok {
			return "", fmt.Errorf("%w: field %q does not fit %s", ErrBadArgument, p.field, p.spec)
		}
		sb.WriteString(rendered)
	}
	return sb.String(), nil
}
