package rendering

import (
	"html"
	"strings"
)

// BodyToHTML escapes a plain-text body and converts it to paragraphs.
// Blank lines separate paragraphs; single newlines become line breaks.
// Template placeholders such as {{unsubscribe_url}} pass through untouched.
func BodyToHTML(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for i, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if i > 0 {
			result.WriteString("\n")
		}
		lines := strings.Split(para, "\n")
		for j, line := range lines {
			lines[j] = html.EscapeString(strings.TrimSpace(line))
		}
		result.WriteString(`<p style="margin:0 0 16px 0;">`)
		result.WriteString(strings.Join(lines, "<br>\n"))
		result.WriteString("</p>")
	}

	return result.String()
}
