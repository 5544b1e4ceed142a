package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// DecodeEntities decodes named, decimal and hexadecimal character references.
// Non-breaking spaces become ordinary spaces.
func DecodeEntities(s string) string {
	return strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
}

// StripTags converts line-break tags to newlines, removes all other markup,
// decodes character references and trims surrounding whitespace.
func StripTags(s string) string {
	s = lineBreakTag.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSpace(DecodeEntities(s))
}
