// Package utils provides shared utilities for logging and terminal text.
package utils

import (
	"strings"

	"golang.org/x/text/width"
)

// Truncate returns s cut to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// DisplayWidth returns the number of terminal columns s occupies. East Asian wide
// and fullwidth characters take two columns.
func DisplayWidth(s string) int {
	cols := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cols += 2
		default:
			cols++
		}
	}
	return cols
}

// PadRight pads s with spaces to cols terminal columns, cutting it first when wider.
func PadRight(s string, cols int) string {
	if DisplayWidth(s) > cols {
		var b strings.Builder
		used := 0
		for _, r := range s {
			w := DisplayWidth(string(r))
			if used+w > cols-1 {
				break
			}
			b.WriteRune(r)
			used += w
		}
		s = b.String() + "…"
	}
	return s + strings.Repeat(" ", max(cols-DisplayWidth(s), 0))
}
