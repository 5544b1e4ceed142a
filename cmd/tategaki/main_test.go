package main

import (
	"archive/zip"
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/models"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after source are moved first",
			args:     []string{"chapter.html", "-title", "夜"},
			expected: []string{"-title", "夜", "chapter.html"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-title", "夜", "chapter.html"},
			expected: []string{"-title", "夜", "chapter.html"},
		},
		{
			name:     "source only returns unchanged",
			args:     []string{"chapter.html"},
			expected: []string{"chapter.html"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://docs.google.com/document/d/abc/edit": true,
		"HTTP://example.com/doc":                      true,
		"docs.google.com/document/d/abc":              true,
		"chapter.html":                                false,
		"/home/me/drafts/第一章.html":                    false,
	}
	for in, want := range tests {
		if got := isURL(in); got != want {
			t.Errorf("isURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCoverType(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"cover.jpg", "jpeg", false},
		{"cover.JPEG", "jpeg", false},
		{"cover.png", "png", false},
		{"cover.gif", "", true},
	}
	for _, tt := range tests {
		got, err := coverType(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("coverType(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	if got := outputPath("", "a.epub"); got != "a.epub" {
		t.Errorf("empty out: %q", got)
	}
	if got := outputPath(dir, "a.epub"); got != filepath.Join(dir, "a.epub") {
		t.Errorf("dir out: %q", got)
	}
	file := filepath.Join(dir, "book.epub")
	if got := outputPath(file, "a.epub"); got != file {
		t.Errorf("file out: %q", got)
	}
}

func TestOptionalBool(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var set, negated, unset optionalBool
	fs.Var(&set, "toc", "")
	fs.Var(&negated, "tcy-numbers", "")
	fs.Var(&unset, "tcy-latin", "")
	if err := fs.Parse([]string{"-toc", "-tcy-numbers=false"}); err != nil {
		t.Fatal(err)
	}
	if set.value == nil || !*set.value {
		t.Error("-toc should be true")
	}
	if negated.value == nil || *negated.value {
		t.Error("-tcy-numbers=false should be false")
	}
	if unset.value != nil {
		t.Error("unset flag should stay nil")
	}
}

func TestGeneratorDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	off := false
	cfg.Defaults.TcyNumbers = &off
	cfg.Book.DefaultTitle = "無題"
	d := generatorDefaults(cfg)
	if d.TcyNumbers || d.TcyLatin || !d.TocPage || d.DefaultTitle != "無題" {
		t.Errorf("defaults: %+v", d)
	}
	rules := blankRules(&cfg.Extract)
	if !rules.EmptySpan || !rules.NBSP || !rules.LineBreak || len(rules.Classes) != 1 {
		t.Errorf("blank rules: %+v", rules)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertLocalFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "history.db")
	components, err := initializeComponents(cfg, zap.NewNop(), false, true)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	src := filepath.Join(dir, "chapter.html")
	html := `<html><head><title>夜の章 - Google ドキュメント</title></head><body><p>本文</p></body></html>`
	if err := os.WriteFile(src, []byte(html), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := convert(context.Background(), components.Generator, src, &models.GenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Title != "夜の章" || len(out.Data) == 0 {
		t.Errorf("output: title %q, %d bytes", out.Title, len(out.Data))
	}

	_, err = convert(context.Background(), components.Generator, filepath.Join(dir, "missing.html"), &models.GenerateRequest{})
	if models.CodeOf(err) != models.ErrFetchFailed {
		t.Errorf("missing file: got %v", err)
	}

	n, err := components.Storage.CountGenerations(context.Background(), models.StatusSucceeded)
	if err != nil || n != 1 {
		t.Errorf("recorded generations: %d, %v", n, err)
	}
}

func TestConvertLocalFile_invalidUTF8(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	components, err := initializeComponents(cfg, zap.NewNop(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	src := filepath.Join(dir, "legacy.html")
	if err := os.WriteFile(src, []byte("<body><p>abc\x82\xa0def</p></body>"), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := convert(context.Background(), components.Generator, src, &models.GenerateRequest{Title: "旧稿"})
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out.Data), int64(len(out.Data)))
	if err != nil {
		t.Fatal(err)
	}
	for _, zf := range zr.File {
		if !strings.HasSuffix(zf.Name, ".xhtml") {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !utf8.Valid(data) {
			t.Errorf("%s is not valid UTF-8", zf.Name)
		}
	}
}

func TestHistoryAndStatusFromStorage(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, `
storage:
  database_path: "`+filepath.Join(dir, "history.db")+`"
  output_dir: "`+filepath.Join(dir, "books")+`"
`)
	cfg, store, err := openHistory(configPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, status := range []string{models.StatusSucceeded, models.StatusSucceeded, models.StatusFailed} {
		if err := store.RecordGeneration(ctx, &models.GenerationRecord{SourceID: "doc", Title: "t", Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Storage.OutputDir, "t.epub"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := historyFromStorage(configPath, 0, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("limit: got %d records", len(records))
	}
	records, err = historyFromStorage(configPath, 0, 10, "doc")
	if err != nil || len(records) != 3 {
		t.Errorf("by source: got %d, %v", len(records), err)
	}

	report, err := statusFromStorage(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Errorf("counts: %+v", report)
	}
	if report.Books.Files != 1 || report.Books.Bytes != 3 {
		t.Errorf("books: %+v", report.Books)
	}
	if report.DatabaseBytes == 0 {
		t.Error("database size should be reported")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// cwd may differ from t.TempDir() by a symlink (macOS /private/var).
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists")
	}
	t.Chdir(t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" || cfg.Server.Port != 8080 || cfg.Book.Language != "ja" {
		t.Errorf("resolved %q, cfg %+v", resolved, cfg.Server)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	configPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}
