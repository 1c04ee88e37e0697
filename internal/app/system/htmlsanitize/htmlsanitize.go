// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is built once; bluemonday policies are safe for concurrent use
// after construction.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("p", "span", "div", "table", "tr", "td", "th")
	p.AllowElements("u", "s", "mark")
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs from admin-supplied
// HTML such as the welcome text.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// SanitizeToHTML is Sanitize typed for direct use in html/template.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and turns newlines into <br> inside one paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay accepts either plain text or HTML and returns markup safe
// to render.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
