/*
Package compositor – composite-key template parsing.

A template is literal text interspersed with {name} placeholders, e.g.
"someItemType:{uid}:{version}". Doubled braces ("{{", "}}") encode literal
brace characters. Parsed templates are immutable and cached per distinct
format string.
*/
package compositor

import (
	"strconv"
	"strings"
	"sync"
)

// segment is one piece of a parsed template: either literal text or a
// placeholder reference.
type segment struct {
	literal bool
	value   string // literal text, or the placeholder name
}

// Template is a parsed composite-key format string. Immutable after parse.
type Template struct {
	raw      string
	segments []segment
	fields   []string // placeholder names, in template order
}

var templateCache sync.Map // format string → *Template

// ParseTemplate parses a composite-key format string. Results are cached, so
// repeated calls with the same format return the same *Template.
func ParseTemplate(format string) (*Template, error) {
	if cached, ok := templateCache.Load(format); ok {
		return cached.(*Template), nil
	}
	t, err := parseTemplate(format)
	if err != nil {
		return nil, err
	}
	actual, _ := templateCache.LoadOrStore(format, t)
	return actual.(*Template), nil
}

func parseTemplate(format string) (*Template, error) {
	t := &Template{raw: format}
	seen := map[string]bool{}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: true, value: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); {
		c := format[i]
		switch c {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return nil, &TemplateSyntaxError{Format: format, Pos: i, Reason: "unterminated placeholder"}
			}
			name := format[i+1 : i+end]
			if name == "" {
				return nil, &TemplateSyntaxError{Format: format, Pos: i, Reason: "empty placeholder name"}
			}
			if !validIdentifier(name) {
				return nil, &TemplateSyntaxError{Format: format, Pos: i, Reason: "invalid placeholder name " + strconv.Quote(name)}
			}
			if seen[name] {
				return nil, &TemplateSyntaxError{Format: format, Pos: i, Reason: "duplicate placeholder " + strconv.Quote(name)}
			}
			seen[name] = true
			flush()
			t.segments = append(t.segments, segment{value: name})
			t.fields = append(t.fields, name)
			i += end + 1
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, &TemplateSyntaxError{Format: format, Pos: i, Reason: "unmatched closing brace"}
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return t, nil
}

// validIdentifier reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
func validIdentifier(name string) bool {
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(name) > 0
}

// Raw returns the original format string.
func (t *Template) Raw() string { return t.raw }

// Fields returns the placeholder names in template order. The returned slice
// must not be modified.
func (t *Template) Fields() []string { return t.fields }

// IsConstant reports whether the template contains no placeholders.
func (t *Template) IsConstant() bool { return len(t.fields) == 0 }
