// Package markup provides tag-aware scanning and escaping helpers for XHTML fragments.
package markup

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// Segment is a slice of a markup string: either one tag (IsMarkup) or a run of text.
// InsideAnnotation is set on text segments that appear within a wrapper region.
type Segment struct {
	Content          string
	IsMarkup         bool
	InsideAnnotation bool
}

// Scanner splits markup into segments and tracks whether text sits inside either
// of two wrapper elements. Wrapper state is boolean, so unmatched closing tags
// never underflow it.
type Scanner struct {
	outer string
	inner string
}

// NewScanner returns a Scanner tracking the two wrapper element names (case-insensitive).
func NewScanner(outer, inner string) *Scanner {
	return &Scanner{outer: strings.ToLower(outer), inner: strings.ToLower(inner)}
}

// NewRubyScanner returns a Scanner tracking ruby annotation markup.
func NewRubyScanner() *Scanner {
	return NewScanner("ruby", "rt")
}

// Segments returns the segments of text in order. Concatenating every
// segment's Content reproduces text byte for byte.
func (s *Scanner) Segments(text string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		z := html.NewTokenizer(strings.NewReader(text))
		var inOuter, inInner bool
		consumed := 0
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				// A trailing fragment the tokenizer could not finish (e.g. "<span") is
				// passed through as text so no input is lost.
				if consumed < len(text) {
					yield(Segment{Content: text[consumed:], InsideAnnotation: inOuter || inInner})
				}
				return
			}
			raw := string(z.Raw())
			consumed += len(raw)
			if tt == html.TextToken {
				if !yield(Segment{Content: raw, InsideAnnotation: inOuter || inInner}) {
					return
				}
				continue
			}
			if tt == html.StartTagToken || tt == html.EndTagToken {
				name, _ := z.TagName()
				open := tt == html.StartTagToken
				switch string(name) {
				case s.outer:
					inOuter = open
				case s.inner:
					inInner = open
				}
			}
			if !yield(Segment{Content: raw, IsMarkup: true}) {
				return
			}
		}
	}
}
