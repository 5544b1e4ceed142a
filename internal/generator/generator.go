// Package generator runs the fetch, extract and build pipeline for one book
// and maps failures onto the caller-facing error codes.
package generator

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/tategaki/internal/epub"
	"github.com/hyperjump/tategaki/internal/extract"
	"github.com/hyperjump/tategaki/internal/fileid"
	"github.com/hyperjump/tategaki/internal/gdocs"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/ruby"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

const (
	// DefaultTitle is used when neither the request nor the document has a title.
	DefaultTitle = "Untitled"

	filenameFallback = "output"
	timestampLayout  = "20060102-150405"
)

// Fetcher retrieves the HTML export of a document.
type Fetcher interface {
	Fetch(ctx context.Context, docID string) (*gdocs.Document, error)
}

// Recorder stores generation history.
type Recorder interface {
	RecordGeneration(ctx context.Context, rec *models.GenerationRecord) error
}

// Defaults are applied to requests that leave options unset.
type Defaults struct {
	TcyNumbers   bool
	TcyLatin     bool
	TocPage      bool
	DefaultTitle string
}

// DefaultDefaults returns digits as combined text, Latin runs untouched and a contents page.
func DefaultDefaults() Defaults {
	return Defaults{TcyNumbers: true, TcyLatin: false, TocPage: true, DefaultTitle: DefaultTitle}
}

// Output is a generated book.
type Output struct {
	Filename   string
	Title      string
	Identifier string
	Data       []byte
	// Digest is the hex BLAKE3-256 of Data.
	Digest string
}

// Generator produces EPUB archives from Google Docs URLs or local HTML.
type Generator struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	builder   *epub.Builder
	recorder  Recorder
	defaults  Defaults
	now       func() time.Time
	logger    *zap.Logger

	// stampMu guards lastStamp, the millisecond stamp of the latest identifier.
	stampMu   sync.Mutex
	lastStamp int64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRecorder stores every outcome, successful or not, in rec.
func WithRecorder(rec Recorder) GeneratorOption {
	return func(g *Generator) { g.recorder = rec }
}

// WithDefaults sets the option defaults.
func WithDefaults(d Defaults) GeneratorOption {
	return func(g *Generator) {
		if d.DefaultTitle == "" {
			d.DefaultTitle = DefaultTitle
		}
		g.defaults = d
	}
}

// WithClock sets the time source for identifiers and filenames.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets a logger for generation events.
func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// New creates a Generator. fetcher may be nil when only local HTML is converted.
func New(fetcher Fetcher, extractor *extract.Extractor, builder *epub.Builder, opts ...GeneratorOption) *Generator {
	g := &Generator{
		fetcher:   fetcher,
		extractor: extractor,
		builder:   builder,
		defaults:  DefaultDefaults(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate fetches the document named by req.URL and builds it into a book.
// Errors are *models.GenerationError values.
func (g *Generator) Generate(ctx context.Context, req *models.GenerateRequest) (*Output, error) {
	req.Normalize()
	if req.URL == "" {
		return nil, models.NewError(models.ErrInvalidURL, models.MsgURLRequired, nil)
	}
	docID, err := gdocs.ExtractDocID(req.URL)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidURL, models.MsgInvalidURL, err)
	}
	if g.fetcher == nil {
		return nil, g.fail(ctx, docID, req, models.NewError(models.ErrFetchFailed, models.MsgFetchFailed, errors.New("no fetcher configured")))
	}

	doc, err := g.fetcher.Fetch(ctx, docID)
	if err != nil {
		var ge *models.GenerationError
		if !errors.As(err, &ge) {
			err = models.NewError(models.ErrFetchFailed, models.MsgFetchFailed, err)
		}
		return nil, g.fail(ctx, docID, req, err)
	}
	return g.render(ctx, docID, doc.HTML, req)
}

// GenerateFromHTML builds a book from an already retrieved HTML export.
// sourceID names the source in identifiers and history; empty means a random UUID.
func (g *Generator) GenerateFromHTML(ctx context.Context, sourceID, html string, req *models.GenerateRequest) (*Output, error) {
	req.Normalize()
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	return g.render(ctx, sourceID, html, req)
}

// GenerateFromFile builds a book from an HTML export on disk. Invalid UTF-8 in
// the file is replaced. The source id is derived from the absolute path, so
// rebuilding the same file shares one history source.
func (g *Generator) GenerateFromFile(ctx context.Context, path string, req *models.GenerateRequest) (*Output, error) {
	req.Normalize()
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidRequest, models.MsgInvalidRequest, err)
	}
	sourceID := fileid.FileSourceID(abs)
	res, err := g.extractor.ExtractFile(abs, g.defaults.DefaultTitle)
	if err != nil && !errors.Is(err, extract.ErrNoContent) {
		return nil, g.fail(ctx, sourceID, req, models.NewError(models.ErrFetchFailed,
			fmt.Sprintf("ファイルを読み込めませんでした: %s", filepath.Base(abs)), err))
	}
	return g.assemble(ctx, sourceID, res, err, req)
}

func (g *Generator) render(ctx context.Context, sourceID, html string, req *models.GenerateRequest) (*Output, error) {
	res, err := g.extractor.Extract(html, g.defaults.DefaultTitle)
	return g.assemble(ctx, sourceID, res, err, req)
}

// assemble builds and records the book for an extraction outcome.
func (g *Generator) assemble(ctx context.Context, sourceID string, res *extract.Result, err error, req *models.GenerateRequest) (*Output, error) {
	if err != nil {
		return nil, g.fail(ctx, sourceID, req, models.NewError(models.ErrParseFailed, models.MsgParseFailed, err))
	}

	title := req.Title
	if title == "" {
		title = res.Title
	}
	if title == "" {
		title = g.defaults.DefaultTitle
	}
	now := g.now()
	meta := models.BookMetadata{
		Title:           title,
		Author:          req.Author,
		PublicationDate: req.PublicationDate,
		Publisher:       req.Publisher,
		Issuer:          req.Issuer,
		Edition:         req.Edition,
		ColophonNotes:   req.ColophonNotes,
		Identifier:      sourceID + "-" + strconv.FormatInt(g.stamp(now), 10),
		TocPageEnabled:  boolOr(req.Options.TocPage, g.defaults.TocPage),
	}
	opts := models.TcyOptions{
		ConvertDigits: boolOr(req.Options.TcyNumbers, g.defaults.TcyNumbers),
		ConvertLatin:  boolOr(req.Options.TcyLatin, g.defaults.TcyLatin),
	}
	cover := decodeCover(req.CoverBase64, req.CoverType)
	if req.CoverBase64 != "" && cover == nil {
		g.logger.Debug("cover image ignored", zap.String("source_id", sourceID), zap.String("cover_type", req.CoverType))
	}

	data, err := g.build(res.Blocks, meta, opts, cover)
	if err != nil {
		return nil, g.fail(ctx, sourceID, req, models.NewError(models.ErrEPUBBuildFailed, models.MsgBuildFailed, err))
	}

	sum := blake3.Sum256(data)
	out := &Output{
		Filename:   SafeFilename(ruby.StripNotation(title)) + "_" + now.Format(timestampLayout) + ".epub",
		Title:      title,
		Identifier: meta.Identifier,
		Data:       data,
		Digest:     hex.EncodeToString(sum[:]),
	}
	g.logger.Info("epub generated",
		zap.String("source_id", sourceID),
		zap.String("title", title),
		zap.Int("blocks", len(res.Blocks)),
		zap.Int("bytes", len(data)))
	g.record(ctx, &models.GenerationRecord{
		SourceID:   sourceID,
		Title:      title,
		Author:     req.Author,
		Identifier: meta.Identifier,
		Filename:   out.Filename,
		SizeBytes:  int64(len(data)),
		Digest:     out.Digest,
		Status:     models.StatusSucceeded,
		CreatedAt:  now,
	})
	return out, nil
}

// build runs the archive builder, turning a panic into an error.
func (g *Generator) build(blocks []models.ContentBlock, meta models.BookMetadata, opts models.TcyOptions, cover *models.CoverImage) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during build: %v", r)
		}
	}()
	return g.builder.Build(blocks, meta, opts, cover)
}

// stamp returns now in Unix milliseconds, moved past the previous stamp when
// needed so that no two identifiers from this Generator are equal.
func (g *Generator) stamp(now time.Time) int64 {
	g.stampMu.Lock()
	defer g.stampMu.Unlock()
	ms := max(now.UnixMilli(), g.lastStamp+1)
	g.lastStamp = ms
	return ms
}

// fail logs and records a failed generation and returns err.
func (g *Generator) fail(ctx context.Context, sourceID string, req *models.GenerateRequest, err error) error {
	code := models.CodeOf(err)
	fields := []zap.Field{zap.String("source_id", sourceID), zap.String("error_code", string(code))}
	if code == models.ErrEPUBBuildFailed {
		g.logger.Error("epub generation failed", append(fields, zap.Error(err))...)
	} else {
		g.logger.Info("epub generation rejected", append(fields, zap.Error(err))...)
	}
	g.record(ctx, &models.GenerationRecord{
		SourceID:  sourceID,
		Title:     req.Title,
		Author:    req.Author,
		Status:    models.StatusFailed,
		ErrorCode: code,
		CreatedAt: g.now(),
	})
	return err
}

func (g *Generator) record(ctx context.Context, rec *models.GenerationRecord) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordGeneration(ctx, rec); err != nil {
		g.logger.Warn("failed to record generation", zap.String("source_id", rec.SourceID), zap.Error(err))
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// decodeCover returns nil when the type is unknown or the data is not valid base64.
// A data URL prefix is accepted.
func decodeCover(b64, coverType string) *models.CoverImage {
	if b64 == "" {
		return nil
	}
	format := models.ImageFormat(strings.ToLower(coverType))
	if format != models.ImageJPEG && format != models.ImagePNG {
		return nil
	}
	if strings.HasPrefix(b64, "data:") {
		if i := strings.IndexByte(b64, ','); i >= 0 {
			b64 = b64[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		return nil
	}
	return &models.CoverImage{Data: data, Format: format}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SafeFilename replaces characters that are invalid in file names and collapses whitespace.
// Returns "output" when nothing usable remains.
func SafeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
	if name == "" {
		return filenameFallback
	}
	return name
}
