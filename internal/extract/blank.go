package extract

import (
	"regexp"
	"strings"
)

// BlankRules decides which empty paragraphs are kept as blank lines.
// Exporters mark intentional vertical spacing in different ways, so each marker is optional.
type BlankRules struct {
	// Classes lists class names that mark a blank paragraph (e.g. "c3").
	Classes []string
	// EmptySpan treats a paragraph holding an empty inline span as blank.
	EmptySpan bool
	// NBSP treats a non-breaking space (literal or &nbsp;) as blank.
	NBSP bool
	// LineBreak treats a <br> as blank.
	LineBreak bool
}

// DefaultBlankRules matches the markers of Google Docs HTML exports.
func DefaultBlankRules() BlankRules {
	return BlankRules{
		Classes:   []string{"c3"},
		EmptySpan: true,
		NBSP:      true,
		LineBreak: true,
	}
}

var (
	lineBreakMarker = regexp.MustCompile(`(?i)<br\s*/?>`)
	nbspMarker      = regexp.MustCompile("(?i)&nbsp;|\u00a0")
	emptySpanMarker = regexp.MustCompile(`(?i)<span[^>]*>\s*</span>`)
)

// blankMatcher is BlankRules compiled for repeated use.
type blankMatcher struct {
	rules   BlankRules
	classes []*regexp.Regexp
}

func newBlankMatcher(rules BlankRules) *blankMatcher {
	m := &blankMatcher{rules: rules}
	for _, c := range rules.Classes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		m.classes = append(m.classes, regexp.MustCompile(`(?i)class=["'][^"']*\b`+regexp.QuoteMeta(c)+`\b[^"']*["']`))
	}
	return m
}

// isBlank reports whether the inner markup of an element with no visible text marks a blank line.
func (m *blankMatcher) isBlank(inner string) bool {
	if strings.TrimSpace(inner) == "" {
		return true
	}
	if m.rules.LineBreak && lineBreakMarker.MatchString(inner) {
		return true
	}
	if m.rules.NBSP && nbspMarker.MatchString(inner) {
		return true
	}
	for _, re := range m.classes {
		if re.MatchString(inner) {
			return true
		}
	}
	return m.rules.EmptySpan && emptySpanMarker.MatchString(inner)
}
