package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tategaki/internal/fileid"
	"github.com/hyperjump/tategaki/internal/generator"
	"github.com/hyperjump/tategaki/internal/models"
	"go.uber.org/zap"
)

// FileGenerator builds a book from an HTML export on disk.
type FileGenerator interface {
	GenerateFromFile(ctx context.Context, path string, req *models.GenerateRequest) (*generator.Output, error)
}

// Inbox turns HTML exports into books under an output directory. A source
// /in/a.html becomes <outputDir>/a-<short path hash>.epub, so sources sharing
// a base name never share a book.
type Inbox struct {
	gen       FileGenerator
	outputDir string
	template  models.GenerateRequest
	logger    *zap.Logger
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithInboxLogger sets the inbox logger.
func WithInboxLogger(l *zap.Logger) InboxOption {
	return func(in *Inbox) { in.logger = l }
}

// WithTemplate sets the request fields (author, publisher, options...) applied to every conversion.
func WithTemplate(req models.GenerateRequest) InboxOption {
	return func(in *Inbox) { in.template = req }
}

// NewInbox creates an inbox writing books to outputDir.
func NewInbox(gen FileGenerator, outputDir string, opts ...InboxOption) *Inbox {
	in := &Inbox{gen: gen, outputDir: outputDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// OutputPath returns where the book for src is written.
func (in *Inbox) OutputPath(src string) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		abs = filepath.Clean(src)
	}
	base := filepath.Base(abs)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "-" + fileid.Short(abs) + ".epub"
	return filepath.Join(in.outputDir, name)
}

// Convert generates the book for the HTML file at path and returns the written book path.
func (in *Inbox) Convert(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", abs)
	}
	req := in.template
	out, err := in.gen.GenerateFromFile(ctx, abs, &req)
	if err != nil {
		return "", err
	}
	dest := in.OutputPath(abs)
	if err := writeAtomic(dest, out.Data); err != nil {
		return "", err
	}
	in.logger.Info("book written",
		zap.String("source", abs),
		zap.String("book", dest),
		zap.String("title", out.Title),
		zap.Int("bytes", len(out.Data)))
	return dest, nil
}

// Remove deletes the book generated from path. A missing book is not an error.
func (in *Inbox) Remove(path string) error {
	dest := in.OutputPath(path)
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove book: %w", err)
	}
	in.logger.Info("book removed", zap.String("source", path), zap.String("book", dest))
	return nil
}

// Callbacks adapts the inbox to NewWatcher's callbacks. Failures are logged.
func (in *Inbox) Callbacks(ctx context.Context) (onConvert, onRemove func(path string)) {
	onConvert = func(path string) {
		if _, err := in.Convert(ctx, path); err != nil {
			in.logger.Warn("conversion failed",
				zap.String("path", path),
				zap.String("error_code", string(models.CodeOf(err))),
				zap.Error(err))
		}
	}
	onRemove = func(path string) {
		if err := in.Remove(path); err != nil {
			in.logger.Warn("remove failed", zap.String("path", path), zap.Error(err))
		}
	}
	return onConvert, onRemove
}

func writeAtomic(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tategaki-*.epub")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write book: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close book: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename book: %w", err)
	}
	return nil
}
