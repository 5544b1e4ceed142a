// Package tcy wraps short runs of digits and Latin characters in combined
// horizontal text (tate-chu-yoko) spans for vertical layouts.
package tcy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperjump/tategaki/internal/markup"
	"github.com/hyperjump/tategaki/internal/models"
	"golang.org/x/text/width"
)

const (
	// OpenTag starts a combined horizontal text run.
	OpenTag  = `<span class="tcy">`
	closeTag = "</span>"

	// placeholderMark brackets a protected reference index (Private Use Area).
	placeholderMark = "\uE000"
)

var (
	digitRun = regexp.MustCompile(`[0-9]{1,4}`)
	latinRun = regexp.MustCompile(`[A-Za-z!?.,:;@#$%&+*=/\\-]{1,4}`)

	entityRef   = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	placeholder = regexp.MustCompile(placeholderMark + `([０-９]+)` + placeholderMark)
)

// Apply wraps every 1-4 character run of enabled classes found outside markup,
// outside ruby annotations and outside existing tcy spans. Digits are processed
// before Latin characters; text already wrapped by an earlier pass is skipped.
func Apply(text string, opts models.TcyOptions) string {
	if opts.ConvertDigits {
		text = applyPattern(text, digitRun)
	}
	if opts.ConvertLatin {
		text = applyPattern(text, latinRun)
	}
	return text
}

func applyPattern(text string, pattern *regexp.Regexp) string {
	var b strings.Builder
	b.Grow(len(text))
	inTcy := false
	for seg := range markup.NewRubyScanner().Segments(text) {
		if seg.IsMarkup {
			switch {
			case seg.Content == OpenTag:
				inTcy = true
			case inTcy && seg.Content == closeTag:
				inTcy = false
			}
			b.WriteString(seg.Content)
			continue
		}
		if seg.InsideAnnotation || inTcy {
			b.WriteString(seg.Content)
			continue
		}
		b.WriteString(wrapProtected(seg.Content, pattern))
	}
	return b.String()
}

// wrapProtected wraps pattern matches in text while keeping character references
// intact. Each reference is swapped for a placeholder holding its index in
// full-width digits, which neither pattern can match, and restored afterwards.
func wrapProtected(text string, pattern *regexp.Regexp) string {
	var refs []string
	protected := entityRef.ReplaceAllStringFunc(text, func(ref string) string {
		refs = append(refs, ref)
		return placeholderMark + width.Widen.String(strconv.Itoa(len(refs)-1)) + placeholderMark
	})
	wrapped := pattern.ReplaceAllStringFunc(protected, func(m string) string {
		return OpenTag + m + closeTag
	})
	if len(refs) == 0 {
		return wrapped
	}
	return placeholder.ReplaceAllStringFunc(wrapped, func(m string) string {
		digits := placeholder.FindStringSubmatch(m)[1]
		i, err := strconv.Atoi(width.Narrow.String(digits))
		if err != nil || i >= len(refs) {
			return m
		}
		return refs[i]
	})
}
