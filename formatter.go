/*
Package compositor – composite-key formatter.

A KeyFormatter owns one parsed Template plus the physical attribute name the
rendered string is stored under. Rendering concatenates segments in template
order; the composite separator is metadata describing the convention the
template was authored with, not an operation applied here.
*/
package compositor

import "strings"

// KeyFormatter renders a physical key attribute value from item attributes.
// Immutable after construction; safe for concurrent use.
type KeyFormatter struct {
	attributeName string
	separator     string
	tmpl          *Template
}

// NewKeyFormatter parses format and binds it to the physical attribute name.
// separator records the composite separator convention (may be empty when the
// format has at most one placeholder).
func NewKeyFormatter(attributeName, format, separator string) (*KeyFormatter, error) {
	tmpl, err := ParseTemplate(format)
	if err != nil {
		return nil, err
	}
	return &KeyFormatter{
		attributeName: attributeName,
		separator:     separator,
		tmpl:          tmpl,
	}, nil
}

// AttributeName returns the physical attribute the rendered key is stored under.
func (f *KeyFormatter) AttributeName() string { return f.attributeName }

// Separator returns the composite separator convention.
func (f *KeyFormatter) Separator() string { return f.separator }

// Format returns the raw template string.
func (f *KeyFormatter) Format() string { return f.tmpl.Raw() }

// RequiredAttributes returns the placeholder names in template order. The
// returned slice must not be modified.
func (f *KeyFormatter) RequiredAttributes() []string { return f.tmpl.Fields() }

// Render produces the concrete key string from the supplied attributes.
// Every placeholder must resolve to a scalar; nil values are treated as
// missing. Rendering is deterministic and has no side effects.
func (f *KeyFormatter) Render(values AttributeSet) (string, error) {
	var b strings.Builder
	for _, seg := range f.tmpl.segments {
		if seg.literal {
			b.WriteString(seg.value)
			continue
		}
		v, ok := values[seg.value]
		if !ok || v == nil {
			return "", &MissingAttributeError{Attribute: seg.value, Key: f.attributeName}
		}
		s, ok := scalarSegment(v)
		if !ok {
			return "", &AttributeTypeError{Attribute: seg.value, Value: v}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// RenderPrefix renders as much of the key as the supplied attributes cover,
// stopping at the first unresolved placeholder. Used to build begins_with
// sort-key conditions for partially specified queries.
func (f *KeyFormatter) RenderPrefix(values AttributeSet) string {
	var b strings.Builder
	for _, seg := range f.tmpl.segments {
		if seg.literal {
			b.WriteString(seg.value)
			continue
		}
		v, ok := values[seg.value]
		if !ok || v == nil {
			break
		}
		s, ok := scalarSegment(v)
		if !ok {
			break
		}
		b.WriteString(s)
	}
	return b.String()
}

// ReverseRender recovers placeholder values from a rendered key string by
// walking the template: each placeholder consumes input up to the next
// literal segment (or end of string). Values that themselves contain the
// following literal cannot be recovered unambiguously; the first split wins.
func (f *KeyFormatter) ReverseRender(rendered string) AttributeSet {
	values := AttributeSet{}
	rest := rendered
	segs := f.tmpl.segments
	for i, seg := range segs {
		if seg.literal {
			rest = strings.TrimPrefix(rest, seg.value)
			continue
		}
		if i+1 < len(segs) && segs[i+1].literal {
			next := segs[i+1].value
			val, _, _ := strings.Cut(rest, next)
			values[seg.value] = val
			rest = rest[len(val):]
		} else {
			values[seg.value] = rest
			rest = ""
		}
	}
	return values
}

// coverage returns how many leading placeholders of the template resolve from
// the supplied attributes before the first gap, and the total placeholder
// count.
func (f *KeyFormatter) coverage(values AttributeSet) (covered, total int) {
	fields := f.tmpl.Fields()
	total = len(fields)
	for _, name := range fields {
		if v, ok := values[name]; !ok || v == nil {
			break
		}
		covered++
	}
	return covered, total
}

// satisfiable reports whether every placeholder has a non-nil value.
func (f *KeyFormatter) satisfiable(known map[string]bool) bool {
	for _, name := range f.tmpl.Fields() {
		if !known[name] {
			return false
		}
	}
	return true
}
