// Package mvc implements convention-based routing: URL path segments map
// positionally onto controller, action and optional id through a template
// such as "{controller=Home}/{action=Index}/{id?}".
package mvc

import (
	"fmt"
	"strings"
)

// Values are the route values produced by a template match, keyed by
// parameter name ("controller", "action", "id", ...).
type Values map[string]string

// Controller returns the "controller" value.
func (v Values) Controller() string { return v["controller"] }

// Action returns the "action" value.
func (v Values) Action() string { return v["action"] }

// ID returns the "id" value ("" when omitted).
func (v Values) ID() string { return v["id"] }

type segment struct {
	literal  string // non-empty for a literal segment
	name     string
	def      string
	hasDef   bool
	optional bool
}

// Template is a parsed route template.
type Template struct {
	raw      string
	segments []segment
}

// DefaultTemplate is the single convention route the app registers.
const DefaultTemplate = "{controller=Home}/{action=Index}/{id?}"

// ParseTemplate parses a route template. Parameters are written {name},
// {name=default} or {name?}; anything else is a literal segment. Once a
// parameter may be omitted, every later parameter must be omittable too.
func ParseTemplate(raw string) (*Template, error) {
	t := &Template{raw: raw}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return t, nil
	}

	omittable := false
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" {
			return nil, fmt.Errorf("route template %q: empty segment", raw)
		}
		if !strings.HasPrefix(part, "{") {
			if omittable {
				return nil, fmt.Errorf("route template %q: literal %q follows an optional parameter", raw, part)
			}
			t.segments = append(t.segments, segment{literal: part})
			continue
		}
		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("route template %q: unterminated parameter %q", raw, part)
		}

		body := part[1 : len(part)-1]
		seg := segment{}
		switch {
		case strings.HasSuffix(body, "?"):
			seg.name = strings.TrimSuffix(body, "?")
			seg.optional = true
		case strings.Contains(body, "="):
			name, def, _ := strings.Cut(body, "=")
			seg.name, seg.def, seg.hasDef = name, def, true
		default:
			seg.name = body
		}
		if seg.name == "" {
			return nil, fmt.Errorf("route template %q: parameter without a name", raw)
		}

		canOmit := seg.optional || seg.hasDef
		if omittable && !canOmit {
			return nil, fmt.Errorf("route template %q: required parameter %q follows an optional one", raw, seg.name)
		}
		omittable = omittable || canOmit
		t.segments = append(t.segments, seg)
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate that panics on error.
func MustParseTemplate(raw string) *Template {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Match maps path onto the template. Omitted trailing segments take their
// defaults (or stay unset when optional); a path with more segments than the
// template does not match. Literal segments compare case-insensitively.
func (t *Template) Match(path string) (Values, bool) {
	var parts []string
	if trimmed := strings.Trim(path, "/"); trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}
	if len(parts) > len(t.segments) {
		return nil, false
	}

	vals := Values{}
	for i, seg := range t.segments {
		if i < len(parts) {
			p := parts[i]
			if p == "" {
				return nil, false
			}
			if seg.literal != "" {
				if !strings.EqualFold(p, seg.literal) {
					return nil, false
				}
				continue
			}
			vals[seg.name] = p
			continue
		}

		// segment omitted
		switch {
		case seg.literal != "":
			return nil, false
		case seg.hasDef:
			vals[seg.name] = seg.def
		case seg.optional:
		default:
			return nil, false
		}
	}
	return vals, true
}
