package markup

import (
	"regexp"
	"strings"
)

// invalidXMLChars matches control characters and the noncharacters U+FFFE and
// U+FFFF, none of which are allowed in XML 1.0.
var invalidXMLChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F\x{FFFE}\x{FFFF}]`)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML drops characters that are invalid in XML and escapes the five
// markup-significant characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(invalidXMLChars.ReplaceAllString(s, ""))
}

// entityOrAmp matches a complete character reference, or a bare ampersand.
var entityOrAmp = regexp.MustCompile(`&(?:[a-zA-Z0-9]+;|#[0-9]+;|#x[0-9a-fA-F]+;)?`)

// FixXML replaces every ampersand that does not start a character reference with &amp;.
func FixXML(s string) string {
	return entityOrAmp.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}

var fragmentEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeFragment escapes text for inclusion in markup without touching character
// references that are already present, so escaped input passes through unchanged.
func EscapeFragment(s string) string {
	return fragmentEscaper.Replace(FixXML(s))
}
