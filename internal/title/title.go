// Package title splits note titles into an emoji header and a base title and
// composes them back together.
package title

import (
	"strings"

	"github.com/hyperjump/emotags/internal/emoji"
)

// StripLeadingEmoji removes the emoji header from title and returns the base
// title. The header is the longest run of emoji units at the start of title;
// the whitespace after it is consumed and the rest is trimmed. A title that
// does not start with an emoji is returned as is.
func StripLeadingEmoji(title string) string {
	rest := title
	for {
		n := emoji.PrefixLen(rest)
		if n == 0 {
			break
		}
		rest = rest[n:]
	}
	if len(rest) == len(title) {
		return title
	}
	return strings.TrimSpace(rest)
}

// Compose prepends the header built from set to base. Emoji are joined
// without separator and followed by a single space. An empty set yields base.
func Compose(set []string, base string) string {
	if len(set) == 0 {
		return base
	}
	var b strings.Builder
	for _, e := range set {
		b.WriteString(e)
	}
	b.WriteByte(' ')
	b.WriteString(base)
	return b.String()
}

// StripAllEmoji removes every emoji unit from title, wherever it occurs, and
// trims the result. Whitespace between words is left untouched.
func StripAllEmoji(title string) string {
	locs := emoji.FindIndex(title)
	if len(locs) == 0 {
		return strings.TrimSpace(title)
	}
	var b strings.Builder
	b.Grow(len(title))
	prev := 0
	for _, loc := range locs {
		b.WriteString(title[prev:loc[0]])
		prev = loc[1]
	}
	b.WriteString(title[prev:])
	return strings.TrimSpace(b.String())
}

// Header returns the emoji header of title exactly as written, without the
// separating whitespace. It is empty when title has no header.
func Header(title string) string {
	end := 0
	for {
		n := emoji.PrefixLen(title[end:])
		if n == 0 {
			break
		}
		end += n
	}
	return title[:end]
}
