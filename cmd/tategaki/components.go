package main

import (
	"fmt"

	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/epub"
	"github.com/hyperjump/tategaki/internal/extract"
	"github.com/hyperjump/tategaki/internal/gdocs"
	"github.com/hyperjump/tategaki/internal/generator"
	"github.com/hyperjump/tategaki/internal/storage"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Client    *gdocs.Client
	Generator *generator.Generator
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires the pipeline from cfg. With withHistory the SQLite
// history database is opened and every generation is recorded in it.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool, withHistory bool) (*Components, error) {
	debugLogger := zap.NewNop()
	if debug {
		debugLogger = logger
	}
	c := &Components{}
	if withHistory {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = store
	}

	c.Client = gdocs.NewClient(
		gdocs.WithExportURL(cfg.Fetch.ExportURLTemplate),
		gdocs.WithUserAgent(cfg.Fetch.UserAgent),
		gdocs.WithTimeout(cfg.Fetch.Timeout),
		gdocs.WithMaxBytes(cfg.Fetch.MaxBytes),
		gdocs.WithLoginMarkers(cfg.Fetch.LoginMarkers),
		gdocs.WithRateLimit(cfg.Fetch.RateLimit.RPS, cfg.Fetch.RateLimit.Burst),
		gdocs.WithLogger(debugLogger),
	)
	extractor := extract.NewExtractor(
		extract.WithBlankRules(blankRules(&cfg.Extract)),
		extract.WithTitleSuffix(cfg.Fetch.TitleSuffix),
		extract.WithLogger(debugLogger),
	)
	builder := epub.NewBuilder(
		epub.WithLanguage(cfg.Book.Language),
		epub.WithBackmatter(cfg.Book.BackmatterURL, cfg.Book.BackmatterText),
		epub.WithLogger(debugLogger),
	)
	genOpts := []generator.GeneratorOption{
		generator.WithDefaults(generatorDefaults(cfg)),
		generator.WithLogger(logger),
	}
	if c.Storage != nil {
		genOpts = append(genOpts, generator.WithRecorder(c.Storage))
	}
	c.Generator = generator.New(c.Client, extractor, builder, genOpts...)
	return c, nil
}

func blankRules(cfg *config.ExtractConfig) extract.BlankRules {
	return extract.BlankRules{
		Classes:   cfg.BlankClasses,
		EmptySpan: deref(cfg.BlankEmptySpan, true),
		NBSP:      deref(cfg.BlankNBSP, true),
		LineBreak: deref(cfg.BlankLineBreak, true),
	}
}

func generatorDefaults(cfg *config.Config) generator.Defaults {
	d := generator.DefaultDefaults()
	d.TcyNumbers = deref(cfg.Defaults.TcyNumbers, d.TcyNumbers)
	d.TcyLatin = deref(cfg.Defaults.TcyLatin, d.TcyLatin)
	d.TocPage = deref(cfg.Defaults.TocPage, d.TocPage)
	if cfg.Book.DefaultTitle != "" {
		d.DefaultTitle = cfg.Book.DefaultTitle
	}
	return d
}

func deref(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

