package epub

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tategaki/internal/markup"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/ruby"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// page wraps body markup in an XHTML document. title must already be escaped.
func (b *Builder) page(title, bodyAttrs, body string, epubNS bool) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!DOCTYPE html>\n")
	sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"`)
	if epubNS {
		sb.WriteString(` xmlns:epub="http://www.idpf.org/2007/ops"`)
	}
	fmt.Fprintf(&sb, " xml:lang=\"%s\">\n", markup.EscapeXML(b.language))
	fmt.Fprintf(&sb, "<head><meta charset=\"UTF-8\"/><title>%s</title><link rel=\"stylesheet\" href=\"style.css\"/></head>\n", title)
	fmt.Fprintf(&sb, "<body%s>%s</body>\n</html>", bodyAttrs, body)
	return sb.String()
}

// tocItems renders list items for the contents lists. With no headings a single
// entry points at the start of the content document.
func tocItems(entries []models.TocEntry, rich bool, title string) string {
	if len(entries) == 0 {
		return `      <li><a href="content.xhtml">` + title + "</a></li>"
	}
	items := make([]string, len(entries))
	for i, e := range entries {
		text := e.PlainText
		if rich {
			text = e.RichText
		}
		items[i] = fmt.Sprintf(`      <li><a href="content.xhtml#%s">%s</a></li>`, e.AnchorID, text)
	}
	return strings.Join(items, "\n")
}

func (b *Builder) navDocument(entries []models.TocEntry, title string) string {
	body := "\n  <nav epub:type=\"toc\" id=\"toc\">\n    <h1>目次</h1>\n    <ol>\n" +
		tocItems(entries, false, title) +
		"\n    </ol>\n  </nav>\n"
	return b.page("目次", "", body, true)
}

func (b *Builder) tocDocument(entries []models.TocEntry, title string) string {
	body := "\n  <h1>目次</h1>\n  <ol>\n" + tocItems(entries, true, title) + "\n  </ol>\n"
	return b.page("目次", ` class="tocpage"`, body, false)
}

func (b *Builder) coverDocument(title string, cover *models.CoverImage) string {
	if cover != nil {
		return b.page("表紙", ` class="cover"`, fmt.Sprintf(`<img src="cover.%s" alt="表紙"/>`, cover.Format.Ext()), false)
	}
	return b.page("表紙", ` class="cover"`, `<div class="cover-title">`+title+`</div>`, false)
}

func (b *Builder) titleDocument(title, author string) string {
	body := "\n  <div class=\"titlebox\">\n    <div class=\"title\">" + title + "</div>\n"
	if author != "" {
		body += "    <div class=\"author\">" + author + "</div>\n"
	}
	body += "  </div>\n"
	return b.page(title, ` class="titlepage"`, body, false)
}

// contentDocument renders every block in order. Headings carry the anchors
// used by the contents entries.
func (b *Builder) contentDocument(blocks []models.ContentBlock, entries []models.TocEntry, title string, opts models.TcyOptions) string {
	var sb strings.Builder
	sb.WriteByte('\n')
	heading := 0
	for _, blk := range blocks {
		switch {
		case blk.Kind.IsHeading():
			e := entries[heading]
			heading++
			fmt.Fprintf(&sb, "<%s id=\"%s\">%s</%s>\n", blk.Kind.Tag(), e.AnchorID, lineBreaks(e.RichText), blk.Kind.Tag())
		case blk.IsBlank:
			sb.WriteString("<p class=\"blank\"><br/></p>\n")
		default:
			class := ""
			if ruby.NoIndent(blk.Text) {
				class = ` class="no-indent"`
			}
			fmt.Fprintf(&sb, "<p%s>%s</p>\n", class, lineBreaks(renderText(blk.Text, richMode, opts)))
		}
	}
	return b.page(title, "", sb.String(), false)
}

// lineBreaks turns line breaks kept from the source into <br/> elements.
func lineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// colophonField is one row of the colophon list.
type colophonField struct {
	label string
	value string
}

func (b *Builder) colophonDocument(meta *models.BookMetadata, title string) string {
	var sb strings.Builder
	sb.WriteString("\n  <div class=\"colophon-box\">\n")
	if title != "" {
		sb.WriteString("    <div class=\"colophon-title\">" + title + "</div>\n")
	}
	sb.WriteString("    <dl class=\"colophon-list\">\n")
	fields := []colophonField{
		{"著　者", meta.Author},
		{"発行者", meta.Issuer},
		{"発行日", meta.PublicationDate},
		{"版", meta.Edition},
		{"発　行", meta.Publisher},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&sb, "<dt>%s</dt><dd>%s</dd>\n", f.label, markup.EscapeXML(f.value))
	}
	sb.WriteString("    </dl>\n")
	if meta.ColophonNotes != "" {
		notes := strings.ReplaceAll(markup.EscapeXML(meta.ColophonNotes), "\r\n", "\n")
		sb.WriteString("    <p class=\"colophon-notes\">" + lineBreaks(notes) + "</p>\n")
	}
	sb.WriteString("  </div>\n")
	return b.page("奥付", ` class="colophon-page"`, sb.String(), false)
}

func (b *Builder) backmatterDocument() string {
	body := fmt.Sprintf(`<div class="backmatter"><p><a href="%s">%s</a></p></div>`,
		markup.EscapeXML(b.backmatterURL), markup.EscapeXML(b.backmatterText))
	return b.page("", ` class="backmatter-page"`, body, false)
}
