// Package extract turns a word-processor HTML export into an ordered list of
// headings and paragraphs plus a document title.
package extract

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hyperjump/tategaki/internal/markup"
	"github.com/hyperjump/tategaki/internal/models"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultTitleSuffix is appended by Google Docs to exported document titles.
const DefaultTitleSuffix = " - Google ドキュメント"

// ErrNoContent is returned when a document yields no blocks.
var ErrNoContent = errors.New("extract: no content blocks found")

var (
	bodyRegion   = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	styleRegion  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptRegion = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	titleElement = regexp.MustCompile(`(?i)<title>([^<]+)</title>`)
)

// Result is the outcome of a successful extraction.
type Result struct {
	Title  string
	Blocks []models.ContentBlock
}

// Extractor extracts blocks from HTML exports.
type Extractor struct {
	blank       *blankMatcher
	titleSuffix string
	logger      *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithBlankRules replaces the default blank-paragraph rules.
func WithBlankRules(r BlankRules) ExtractorOption {
	return func(e *Extractor) { e.blank = newBlankMatcher(r) }
}

// WithTitleSuffix sets the suffix stripped from the <title> element. Empty disables stripping.
func WithTitleSuffix(s string) ExtractorOption {
	return func(e *Extractor) { e.titleSuffix = s }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns an Extractor using DefaultBlankRules and DefaultTitleSuffix unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		blank:       newBlankMatcher(DefaultBlankRules()),
		titleSuffix: DefaultTitleSuffix,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile reads an HTML file and extracts it. Invalid UTF-8 is replaced.
func (e *Extractor) ExtractFile(path, fallbackTitle string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.Extract(string(content), fallbackTitle)
}

// Extract isolates the body, drops style and script regions and collects h1-h3 and p
// elements in document order. When those elements yield no block, the cleaned text is
// split into one paragraph per line. When nothing remains the Result, title included,
// is returned together with ErrNoContent. Invalid UTF-8 is replaced first.
func (e *Extractor) Extract(rawHTML, fallbackTitle string) (*Result, error) {
	rawHTML = validUTF8(rawHTML)
	body := rawHTML
	if m := bodyRegion.FindStringSubmatch(rawHTML); m != nil {
		body = m[1]
	}
	cleaned := styleRegion.ReplaceAllString(body, "")
	cleaned = scriptRegion.ReplaceAllString(cleaned, "")

	blocks := e.collect(cleaned)
	if len(blocks) == 0 {
		blocks = splitLines(cleaned)
		e.logger.Debug("no blocks from elements, split by line", zap.Int("blocks", len(blocks)))
	}

	res := &Result{
		Title:  e.title(rawHTML, fallbackTitle),
		Blocks: blocks,
	}
	if len(blocks) == 0 {
		return res, ErrNoContent
	}
	return res, nil
}

// collect captures the inner markup of every h1, h2, h3 and p element.
func (e *Extractor) collect(cleaned string) []models.ContentBlock {
	var blocks []models.ContentBlock
	z := html.NewTokenizer(strings.NewReader(cleaned))
	var (
		capturing bool
		kind      models.BlockKind
		tag       string
		inner     strings.Builder
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		switch tt {
		case html.StartTagToken:
			if capturing {
				break
			}
			name, _ := z.TagName()
			if k, ok := models.KindForTag(string(name)); ok {
				capturing, kind, tag = true, k, string(name)
				inner.Reset()
				continue
			}
		case html.EndTagToken:
			if !capturing {
				break
			}
			if name, _ := z.TagName(); string(name) == tag {
				capturing = false
				if b, ok := e.block(kind, inner.String()); ok {
					blocks = append(blocks, b)
				}
				continue
			}
		}
		if capturing {
			inner.Write(raw)
		}
	}
	return blocks
}

func (e *Extractor) block(kind models.BlockKind, inner string) (models.ContentBlock, bool) {
	if text := markup.StripTags(inner); text != "" {
		return models.ContentBlock{Kind: kind, Text: text}, true
	}
	if kind == models.Paragraph && e.blank.isBlank(inner) {
		return models.ContentBlock{Kind: models.Paragraph, IsBlank: true}, true
	}
	return models.ContentBlock{}, false
}

func splitLines(cleaned string) []models.ContentBlock {
	var blocks []models.ContentBlock
	for _, line := range strings.Split(markup.StripTags(cleaned), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			blocks = append(blocks, models.ContentBlock{Kind: models.Paragraph, Text: line})
		}
	}
	return blocks
}

// title returns the <title> text with the exporter suffix removed, or fallback.
// Disallowed numeric references are dropped before references are decoded.
func (e *Extractor) title(rawHTML, fallback string) string {
	t := ""
	if m := titleElement.FindStringSubmatch(rawHTML); m != nil {
		t = strings.TrimSpace(m[1])
		if e.titleSuffix != "" {
			t = strings.TrimSpace(strings.TrimSuffix(t, strings.TrimSpace(e.titleSuffix)))
		}
	}
	if t == "" {
		t = fallback
	}
	return strings.TrimSpace(markup.DecodeEntities(markup.SanitizeText(t)))
}
