package web

import (
	"html/template"
	"strings"
	"time"
)

// Funcs are the helpers available to every page template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"nl2br": NL2BR,
		"date":  FormatDate,
		"join":  strings.Join,
	}
}

// NL2BR escapes s and turns each line break into <br>.
func NL2BR(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

// FormatDate renders t with layout, defaulting to 2006-01-02. Zero times
// render as an empty string.
func FormatDate(t time.Time, layout ...string) string {
	if t.IsZero() {
		return ""
	}
	l := "2006-01-02"
	if len(layout) > 0 && layout[0] != "" {
		l = layout[0]
	}
	return t.Format(l)
}
