package epub

import (
	"strconv"

	"github.com/hyperjump/tategaki/internal/markup"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/ruby"
	"github.com/hyperjump/tategaki/internal/tcy"
)

type renderMode int

const (
	// plainMode escapes text with annotation notation removed, for reader chrome.
	plainMode renderMode = iota
	// richMode renders text like body copy: escaped, annotated, tcy converted.
	richMode
)

// renderText runs block text through the given rendering mode.
func renderText(text string, mode renderMode, opts models.TcyOptions) string {
	if mode == plainMode {
		return markup.EscapeXML(ruby.StripNotation(text))
	}
	return tcy.Apply(ruby.Annotate(markup.EscapeXML(text)), opts)
}

// anchorID is the id shared by the i-th heading and its contents entries.
func anchorID(i int) string {
	return "toc-" + strconv.Itoa(i)
}

// Contents derives the contents entries for every heading in blocks, in document
// order. Both renderings of entry i come from the i-th heading and share its anchor.
func Contents(blocks []models.ContentBlock, opts models.TcyOptions) []models.TocEntry {
	var entries []models.TocEntry
	for _, b := range blocks {
		if !b.Kind.IsHeading() {
			continue
		}
		entries = append(entries, models.TocEntry{
			AnchorID:  anchorID(len(entries)),
			Level:     b.Kind.Level(),
			PlainText: renderText(b.Text, plainMode, opts),
			RichText:  renderText(b.Text, richMode, opts),
		})
	}
	return entries
}
