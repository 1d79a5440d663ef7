// Package emoji detects emoji in tag and title text.
//
// A unit of text counts as an emoji when its first code point has the
// Emoji_Presentation property, or when it has the Emoji property and is
// immediately followed by the emoji variation selector U+FE0F. Symbols that
// default to text presentation (©, ☀, ❤ ...) are therefore ignored unless the
// selector forces emoji rendering. A selector or skin-tone modifier directly
// after a match belongs to that match.
//
// Flags, keycaps and ZWJ sequences are not segmented as single units: each
// matching code point inside them is reported on its own.
package emoji

import (
	"unicode"
	"unicode/utf8"
)

// VariationSelector is the code point that requests emoji presentation for
// the preceding character.
const VariationSelector = '\uFE0F'

const (
	modifierFirst = 0x1F3FB
	modifierLast  = 0x1F3FF
)

func isModifier(r rune) bool {
	return r >= modifierFirst && r <= modifierLast
}

// PrefixLen returns the length in bytes of the emoji unit at the start of s,
// or 0 when s does not start with an emoji.
func PrefixLen(s string) int {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	n := size
	next, nextSize := utf8.DecodeRuneInString(s[n:])
	selected := next == VariationSelector

	switch {
	case unicode.Is(Presentation, r):
		if selected {
			n += nextSize
		}
	case selected && unicode.Is(Emoji, r):
		n += nextSize
	default:
		return 0
	}

	if !isModifier(r) {
		if m, msize := utf8.DecodeRuneInString(s[n:]); isModifier(m) {
			n += msize
		}
	}
	return n
}

// IsEmoji reports whether text is exactly one emoji unit.
func IsEmoji(text string) bool {
	n := PrefixLen(text)
	return n > 0 && n == len(text)
}

// FindIndex returns the byte offsets of every emoji unit in s, left to right.
// Each element is a two-element slice [start, end), like regexp's FindAllStringIndex.
func FindIndex(s string) [][]int {
	var locs [][]int
	for i := 0; i < len(s); {
		if n := PrefixLen(s[i:]); n > 0 {
			locs = append(locs, []int{i, i + n})
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return locs
}

// Find returns every emoji unit in s in order of appearance. Repeated emoji
// are returned each time they occur.
func Find(s string) []string {
	locs := FindIndex(s)
	if len(locs) == 0 {
		return nil
	}
	found := make([]string, len(locs))
	for i, loc := range locs {
		found[i] = s[loc[0]:loc[1]]
	}
	return found
}
