// Package models defines core data structures for content blocks, book metadata, and generation requests.
package models

// BlockKind identifies the kind of a ContentBlock.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading1
	Heading2
	Heading3
)

// IsHeading reports whether k is one of the heading kinds.
func (k BlockKind) IsHeading() bool {
	return k == Heading1 || k == Heading2 || k == Heading3
}

// Level returns the heading level (1-3), or 0 for paragraphs.
func (k BlockKind) Level() int {
	switch k {
	case Heading1:
		return 1
	case Heading2:
		return 2
	case Heading3:
		return 3
	}
	return 0
}

// Tag returns the XHTML element name used to render blocks of this kind.
func (k BlockKind) Tag() string {
	switch k {
	case Heading1:
		return "h1"
	case Heading2:
		return "h2"
	case Heading3:
		return "h3"
	}
	return "p"
}

func (k BlockKind) String() string {
	return k.Tag()
}

// KindForTag maps an element name to a BlockKind. ok is false for unknown names.
func KindForTag(tag string) (kind BlockKind, ok bool) {
	switch tag {
	case "h1":
		return Heading1, true
	case "h2":
		return Heading2, true
	case "h3":
		return Heading3, true
	case "p":
		return Paragraph, true
	}
	return Paragraph, false
}

// ContentBlock is one heading or paragraph of extracted document content, in document order.
// Blank paragraphs carry no text and stand for intentional vertical spacing.
type ContentBlock struct {
	Kind    BlockKind `json:"kind"`
	Text    string    `json:"text"`
	IsBlank bool      `json:"is_blank,omitempty"`
}

// TcyOptions selects which character classes are set as combined horizontal text.
type TcyOptions struct {
	ConvertDigits bool `json:"convert_digits"`
	ConvertLatin  bool `json:"convert_latin"`
}

// ImageFormat is the encoding of a cover image.
type ImageFormat string

const (
	ImageJPEG ImageFormat = "jpeg"
	ImagePNG  ImageFormat = "png"
)

// Ext returns the file extension (without dot) used inside the archive.
func (f ImageFormat) Ext() string {
	if f == ImageJPEG {
		return "jpg"
	}
	return "png"
}

// MediaType returns the manifest media type for the format.
func (f ImageFormat) MediaType() string {
	if f == ImageJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// CoverImage is an optional cover embedded verbatim into the archive.
type CoverImage struct {
	Data   []byte
	Format ImageFormat
}

// BookMetadata describes the book being generated. Optional fields are omitted from
// the archive when empty. Identifier must be unique per generation.
type BookMetadata struct {
	Title           string
	Author          string
	PublicationDate string
	Publisher       string
	Issuer          string
	Edition         string
	ColophonNotes   string
	Identifier      string
	TocPageEnabled  bool
}

// HasColophon reports whether any colophon-only field is set.
// Author alone does not produce a colophon page.
func (m *BookMetadata) HasColophon() bool {
	return m.PublicationDate != "" || m.Publisher != "" || m.Issuer != "" ||
		m.Edition != "" || m.ColophonNotes != ""
}

// TocEntry is one heading as it appears in the contents lists.
// PlainText is markup-escaped with annotation notation removed; RichText is the
// fully rendered body markup of the heading.
type TocEntry struct {
	AnchorID  string
	Level     int
	PlainText string
	RichText  string
}
