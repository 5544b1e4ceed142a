// Package epub assembles vertical-writing EPUB 3 archives from extracted content blocks.
package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/tategaki/internal/markup"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/ruby"
	"go.uber.org/zap"
)

// MediaType is the content of the mimetype entry and the archive's media type.
const MediaType = "application/epub+zip"

const (
	defaultLanguage       = "ja"
	defaultBackmatterURL  = "https://5hon.com"
	defaultBackmatterText = "Published on 5hon.com"
	modifiedLayout        = "2006-01-02T15:04:05Z"
	contentDir            = "OEBPS/"
)

// ErrNoBlocks is returned when Build is called without content.
var ErrNoBlocks = errors.New("epub: no content blocks")

// Builder renders books. A Builder holds no per-book state and is safe for concurrent use.
type Builder struct {
	language       string
	backmatterURL  string
	backmatterText string
	now            func() time.Time
	logger         *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLanguage sets the xml:lang and dc:language of generated documents.
func WithLanguage(lang string) BuilderOption {
	return func(b *Builder) {
		if lang != "" {
			b.language = lang
		}
	}
}

// WithBackmatter sets the attribution link on the final page.
func WithBackmatter(url, text string) BuilderOption {
	return func(b *Builder) {
		if url != "" {
			b.backmatterURL = url
		}
		if text != "" {
			b.backmatterText = text
		}
	}
}

// WithClock sets the time source for dcterms:modified and entry timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a Builder with Japanese language settings.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		language:       defaultLanguage,
		backmatterURL:  defaultBackmatterURL,
		backmatterText: defaultBackmatterText,
		now:            time.Now,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// part is one content document or resource under OEBPS/.
type part struct {
	id         string
	href       string
	mediaType  string
	properties string
	spine      bool
	data       []byte
}

func xhtmlPart(id, href, doc string, spine bool) part {
	return part{id: id, href: href, mediaType: "application/xhtml+xml", spine: spine, data: []byte(markup.FixXML(doc))}
}

// Build renders blocks into an EPUB archive. cover may be nil. Optional pages
// (contents page, colophon, cover image) are written, listed in the manifest and
// placed in the spine only when generated.
func (b *Builder) Build(blocks []models.ContentBlock, meta models.BookMetadata, opts models.TcyOptions, cover *models.CoverImage) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if meta.Identifier == "" {
		meta.Identifier = "urn:uuid:" + uuid.NewString()
	}
	if cover != nil && len(cover.Data) == 0 {
		cover = nil
	}

	title := markup.EscapeXML(ruby.StripNotation(meta.Title))
	author := markup.EscapeXML(meta.Author)
	entries := Contents(blocks, opts)

	parts := []part{
		{id: "nav", href: "nav.xhtml", mediaType: "application/xhtml+xml", properties: "nav", data: []byte(markup.FixXML(b.navDocument(entries, title)))},
		{id: "style", href: "style.css", mediaType: "text/css", data: []byte(stylesheet)},
		xhtmlPart("cover", "cover.xhtml", b.coverDocument(title, cover), true),
		xhtmlPart("titlepage", "title.xhtml", b.titleDocument(title, author), true),
	}
	if meta.TocPageEnabled {
		parts = append(parts, xhtmlPart("tocpage", "toc.xhtml", b.tocDocument(entries, title), true))
	}
	parts = append(parts, xhtmlPart("content", "content.xhtml", b.contentDocument(blocks, entries, title, opts), true))
	if meta.HasColophon() {
		parts = append(parts, xhtmlPart("colophon", "colophon.xhtml", b.colophonDocument(&meta, title), true))
	}
	parts = append(parts, xhtmlPart("backmatter", "backmatter.xhtml", b.backmatterDocument(), true))
	if cover != nil {
		parts = append(parts, part{
			id:         "cover-image",
			href:       "cover." + cover.Format.Ext(),
			mediaType:  cover.Format.MediaType(),
			properties: "cover-image",
			data:       cover.Data,
		})
	}

	now := b.now().UTC()
	opf := markup.FixXML(b.packageDocument(&meta, title, author, parts, cover != nil, now))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// mimetype must be first and stored without compression or extra fields.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, fmt.Errorf("create mimetype: %w", err)
	}
	if _, err := w.Write([]byte(MediaType)); err != nil {
		return nil, fmt.Errorf("write mimetype: %w", err)
	}
	if err := writeEntry(zw, "META-INF/container.xml", []byte(containerXML), now); err != nil {
		return nil, err
	}
	if err := writeEntry(zw, contentDir+"content.opf", []byte(opf), now); err != nil {
		return nil, err
	}
	for _, p := range parts {
		if err := writeEntry(zw, contentDir+p.href, p.data, now); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	b.logger.Debug("epub built",
		zap.String("identifier", meta.Identifier),
		zap.Int("blocks", len(blocks)),
		zap.Int("headings", len(entries)),
		zap.Int("parts", len(parts)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// packageDocument renders content.opf. Manifest and spine are both derived from parts.
func (b *Builder) packageDocument(meta *models.BookMetadata, title, author string, parts []part, hasCover bool, modified time.Time) string {
	var sb strings.Builder
	lang := markup.EscapeXML(b.language)
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&sb, "<package xmlns=\"http://www.idpf.org/2007/opf\" version=\"3.0\" unique-identifier=\"BookId\" xml:lang=\"%s\">\n", lang)
	sb.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	fmt.Fprintf(&sb, "    <dc:identifier id=\"BookId\">%s</dc:identifier>\n", markup.EscapeXML(meta.Identifier))
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", title)
	if author != "" {
		fmt.Fprintf(&sb, "    <dc:creator id=\"creator\">%s</dc:creator>\n", author)
	}
	if meta.Publisher != "" {
		fmt.Fprintf(&sb, "    <dc:publisher>%s</dc:publisher>\n", markup.EscapeXML(meta.Publisher))
	}
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", lang)
	fmt.Fprintf(&sb, "    <meta property=\"dcterms:modified\">%s</meta>\n", modified.Format(modifiedLayout))
	if hasCover {
		sb.WriteString("    <meta name=\"cover\" content=\"cover-image\"/>\n")
	}
	sb.WriteString("  </metadata>\n  <manifest>\n")
	for _, p := range parts {
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"%s\" media-type=\"%s\"", p.id, p.href, p.mediaType)
		if p.properties != "" {
			fmt.Fprintf(&sb, " properties=\"%s\"", p.properties)
		}
		sb.WriteString("/>\n")
	}
	sb.WriteString("  </manifest>\n  <spine page-progression-direction=\"rtl\">\n")
	for _, p := range parts {
		if p.spine {
			fmt.Fprintf(&sb, "    <itemref idref=\"%s\"/>\n", p.id)
		}
	}
	sb.WriteString("  </spine>\n</package>")
	return sb.String()
}
