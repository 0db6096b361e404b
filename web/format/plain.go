package format

import (
	"html"
	"strings"
)

// PlainHTML renders text as escape-safe HTML with line breaks preserved.
// No markup in the input is ever interpreted.
func PlainHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<div class=\"message-text\">" + escaped + "</div>"
}
