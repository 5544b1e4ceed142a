// Package ruby converts ｜base《annotation》 notation into ruby markup.
package ruby

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/tategaki/internal/markup"
)

// notation matches ｜base《annotation》. The base may not contain 《 and the
// annotation may not contain 》, so matches never overlap.
var notation = regexp.MustCompile(`｜([^《]+)《([^》]+)》`)

// Annotate replaces every notation match with <ruby>base<rt>annotation</rt></ruby>.
// Base and annotation are escaped; references already present are left intact,
// so Annotate is safe on text that was escaped beforehand.
func Annotate(text string) string {
	return notation.ReplaceAllStringFunc(text, func(m string) string {
		sub := notation.FindStringSubmatch(m)
		return "<ruby>" + markup.EscapeFragment(sub[1]) + "<rt>" + markup.EscapeFragment(sub[2]) + "</rt></ruby>"
	})
}

// StripNotation removes the notation, keeping only the base text.
func StripNotation(text string) string {
	return notation.ReplaceAllString(text, "$1")
}

// openingGlyphs are brackets and quotes that start an unindented paragraph.
const openingGlyphs = "「『（【［〔〈《“‘"

// NoIndent reports whether a paragraph opens with a bracket or quote once the
// notation and leading whitespace are removed.
func NoIndent(text string) bool {
	normalized := strings.TrimLeftFunc(StripNotation(text), unicode.IsSpace)
	if normalized == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(normalized)
	return strings.ContainsRune(openingGlyphs, r)
}
