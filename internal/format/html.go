package format

import (
	"html"
	"regexp"
	"strings"
)

// ParseModeHTML is the Telegram parse mode this package renders for.
const ParseModeHTML = "HTML"

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingRe = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
)

// HTML escapes model output for Telegram's HTML parse mode and turns
// markdown bold and headings into <b>. Lines are rendered independently so
// the line structure Split relies on is unchanged.
func HTML(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = htmlLine(line)
	}
	return strings.Join(lines, "\n")
}

func htmlLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		inner := strings.Trim(m[1], "*")
		return "<b>" + html.EscapeString(inner) + "</b>"
	}
	escaped := html.EscapeString(line)
	return boldRe.ReplaceAllString(escaped, "<b>$1</b>")
}
