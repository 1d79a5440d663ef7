// Package utils provides shared utilities for terminal text and logging.
package utils

import (
	"strings"

	"github.com/rivo/uniseg"
)

const ellipsis = "..."

// Width returns the number of terminal cells s occupies. Emoji count as two.
func Width(s string) int {
	return uniseg.StringWidth(s)
}

// Truncate returns s cut to at most maxWidth terminal cells, with "..." appended if
// truncated. Grapheme clusters are never split. If maxWidth is 0 or negative, returns s unchanged.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	var b strings.Builder
	width := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if width+w > maxWidth {
			break
		}
		b.WriteString(cluster)
		width += w
	}
	return b.String() + ellipsis
}

// PadRight pads s with spaces to width terminal cells.
func PadRight(s string, width int) string {
	if w := uniseg.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
