// Package format prepares reply text for the chat transport.
package format

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the largest message the bot sends, in characters.
const DefaultMaxLength = 4000

// Split breaks text into parts of at most max characters. Whole lines are
// packed greedily so strings.Join(parts, "\n") == text. A single line longer
// than max cannot satisfy both rules; it is cut at rune boundaries and its
// pieces sent as consecutive parts, which is the one case where the join
// does not reproduce text.
func Split(text string, max int) []string {
	return split(text, max, cutRunes)
}

// SplitHTML is Split for text rendered by HTML. An overlong line is never cut
// inside an entity or a tag, and bold text cut in two is closed at the end of
// one part and reopened at the start of the next.
func SplitHTML(text string, max int) []string {
	return split(text, max, cutMarkup)
}

func split(text string, max int, cut func(string, int) (string, string)) []string {
	if max <= 0 {
		max = DefaultMaxLength
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var (
		parts  []string
		cur    strings.Builder
		curLen int
		open   bool
	)
	flush := func() {
		parts = append(parts, cur.String())
		cur.Reset()
		curLen = 0
		open = false
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if open && curLen+1+n <= max {
			cur.WriteByte('\n')
			cur.WriteString(line)
			curLen += 1 + n
			continue
		}
		if open {
			flush()
		}
		for n > max {
			head, tail := cut(line, max)
			parts = append(parts, head)
			line = tail
			n = utf8.RuneCountInString(line)
		}
		cur.WriteString(line)
		curLen = n
		open = true
	}
	if open {
		flush()
	}
	return parts
}

// cutRunes splits s after its first n runes.
func cutRunes(s string, n int) (string, string) {
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx], s[idx:]
		}
		i++
	}
	return s, ""
}

const (
	boldOpen  = "<b>"
	boldClose = "</b>"
)

// cutMarkup cuts s after at most n runes without breaking HTML markup.
func cutMarkup(s string, n int) (string, string) {
	head, tail := cutRunes(s, n)
	if tail == "" {
		return head, tail
	}
	if at := markupBoundary(head); at > 0 {
		head, tail = s[:at], s[at:]
	}
	open := strings.LastIndex(head, boldOpen)
	if open < 0 || open < strings.LastIndex(head, boldClose) {
		return head, tail
	}
	if open > 0 {
		return s[:open], s[open:]
	}
	if n <= len(boldOpen)+len(boldClose) {
		return head, tail
	}
	head, tail = cutRunes(s, n-len(boldClose))
	if at := markupBoundary(head); at > len(boldOpen) {
		head, tail = s[:at], s[at:]
	}
	return head + boldClose, boldOpen + tail
}

// markupBoundary is the byte offset of an unfinished entity or tag at the end
// of s, or len(s) when s ends outside markup.
func markupBoundary(s string) int {
	at := len(s)
	if i := strings.LastIndexByte(s, '&'); i > strings.LastIndexByte(s, ';') {
		at = i
	}
	if i := strings.LastIndexByte(s[:at], '<'); i > strings.LastIndexByte(s[:at], '>') {
		at = i
	}
	return at
}
