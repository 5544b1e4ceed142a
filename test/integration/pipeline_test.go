// Package integration exercises the full pipeline: export fetch, extraction,
// archive building, the HTTP API and generation history.
package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/epub"
	"github.com/hyperjump/tategaki/internal/extract"
	"github.com/hyperjump/tategaki/internal/gdocs"
	"github.com/hyperjump/tategaki/internal/generator"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/server"
	"github.com/hyperjump/tategaki/internal/storage"
	"go.uber.org/zap"
)

const exportHTML = `<html><head><meta content="text/html; charset=UTF-8" http-equiv="content-type">
<style type="text/css">.c3{height:11pt}</style><title>月夜の話 - Google ドキュメント</title></head>
<body class="c5 doc-content">
<h1 class="c2"><span class="c1">第一章　｜月《つき》</span></h1>
<p class="c0"><span class="c1">｜月《つき》が2024年に昇った。</span></p>
<p class="c0 c3"><span class="c1"></span></p>
<p class="c0"><span class="c1">「静かな夜だ」と&#12354;&amp;言った。</span></p>
<h2 class="c2"><span class="c1">第二節</span></h2>
<p class="c0"><span class="c1">終わり。</span></p>
</body></html>`

type fixture struct {
	export  *httptest.Server
	api     *httptest.Server
	store   *storage.SQLiteStorage
	fetches int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.export = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fetches++
		switch {
		case strings.Contains(r.URL.Path, "/private/"):
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="https://accounts.google.com/ServiceLogin">Sign in</a></body></html>`)
		case strings.Contains(r.URL.Path, "/gone/"):
			http.NotFound(w, r)
		case strings.Contains(r.URL.Path, "/empty/"):
			fmt.Fprint(w, `<html><head><title>x</title></head><body></body></html>`)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, exportHTML)
		}
	}))
	t.Cleanup(f.export.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "history.db")
	cfg.Storage.OutputDir = filepath.Join(dir, "books")
	cfg.Server.RateLimit.RPS = -1

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	f.store = store

	client := gdocs.NewClient(
		gdocs.WithHTTPClient(f.export.Client()),
		gdocs.WithExportURL(f.export.URL+"/%s/export"),
		gdocs.WithRateLimit(0, 0),
	)
	gen := generator.New(client, extract.NewExtractor(), epub.NewBuilder(), generator.WithRecorder(store))
	srv, err := server.NewServer(gen, store, cfg, zap.NewNop(), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	f.api = httptest.NewServer(srv.Handler())
	t.Cleanup(f.api.Close)
	return f
}

func (f *fixture) generate(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.api.URL+"/api/v1/epub", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func docURL(id string) string {
	return "https://docs.google.com/document/d/" + id + "/edit"
}

func readEntries(t *testing.T, data []byte) (names []string, content map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	content = make(map[string]string)
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		names = append(names, zf.Name)
		content[zf.Name] = string(b)
	}
	return names, content
}

func queryAll(t *testing.T, doc, expr string) []*xmlquery.Node {
	t.Helper()
	root, err := xmlquery.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	nodes, err := xmlquery.QueryAll(root, expr)
	if err != nil {
		t.Fatalf("query %s: %v", expr, err)
	}
	return nodes
}

func TestPipeline_GeneratesBook(t *testing.T) {
	f := newFixture(t)
	resp := f.generate(t, `{"url":"`+docURL("doc-1")+`","author":"山田","publisher":"夜書房","options":{"tocPage":true}}`)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if resp.Header.Get("Content-Type") != epub.MediaType {
		t.Errorf("Content-Type: %q", resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(resp.Header.Get("X-Content-Digest"), "blake3=") {
		t.Errorf("digest header: %q", resp.Header.Get("X-Content-Digest"))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	names, content := readEntries(t, data)
	if names[0] != "mimetype" || content["mimetype"] != epub.MediaType {
		t.Fatalf("mimetype entry: %v", names[:1])
	}

	opf := content["OEBPS/content.opf"]
	if got := queryAll(t, opf, "//*[local-name()='title']"); len(got) != 1 || got[0].InnerText() != "月夜の話" {
		t.Errorf("dc:title from document title: %v", got)
	}
	for _, item := range queryAll(t, opf, "//*[local-name()='item']") {
		if _, ok := content["OEBPS/"+item.SelectAttr("href")]; !ok {
			t.Errorf("manifest item %s has no entry", item.SelectAttr("href"))
		}
	}

	body := content["OEBPS/content.xhtml"]
	headings := queryAll(t, body, "//*[local-name()='h1' or local-name()='h2']")
	links := queryAll(t, content["OEBPS/nav.xhtml"], "//*[local-name()='nav']//*[local-name()='a']")
	if len(headings) != 2 || len(links) != 2 {
		t.Fatalf("headings %d, nav links %d", len(headings), len(links))
	}
	for i, h := range headings {
		if want := "content.xhtml#" + h.SelectAttr("id"); links[i].SelectAttr("href") != want {
			t.Errorf("nav link %d: %q, want %q", i, links[i].SelectAttr("href"), want)
		}
	}
	if rt := queryAll(t, body, "//*[local-name()='rt']"); len(rt) < 2 || rt[0].InnerText() != "つき" {
		t.Errorf("ruby annotations: %d", len(rt))
	}
	if tcy := queryAll(t, body, "//*[local-name()='span'][@class='tcy']"); len(tcy) != 1 || tcy[0].InnerText() != "2024" {
		t.Errorf("tcy spans: %d", len(tcy))
	}
	if blank := queryAll(t, body, "//*[local-name()='p'][@class='blank']"); len(blank) != 1 {
		t.Errorf("blank paragraphs: %d", len(blank))
	}
	if !strings.Contains(body, "あ&amp;言った") {
		t.Error("character references should be decoded and re-escaped")
	}
	if _, ok := content["OEBPS/colophon.xhtml"]; !ok {
		t.Error("publisher should produce a colophon")
	}

	records, err := f.store.ListGenerations(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].SourceID != "doc-1" || records[0].Status != models.StatusSucceeded {
		t.Errorf("history: %+v", records)
	}
	if records[0].SizeBytes != int64(len(data)) {
		t.Errorf("recorded size %d, served %d", records[0].SizeBytes, len(data))
	}
}

func TestPipeline_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   models.ErrorCode
		wantFetch  bool
	}{
		{"missing url", `{"title":"x"}`, http.StatusBadRequest, models.ErrInvalidURL, false},
		{"not a docs url", `{"url":"https://example.com/doc"}`, http.StatusBadRequest, models.ErrInvalidURL, false},
		{"private document", `{"url":"` + docURL("private") + `"}`, http.StatusBadRequest, models.ErrNotPublic, true},
		{"missing document", `{"url":"` + docURL("gone") + `"}`, http.StatusBadRequest, models.ErrFetchFailed, true},
		{"empty document", `{"url":"` + docURL("empty") + `"}`, http.StatusBadRequest, models.ErrParseFailed, true},
		{"schema violation", `{"url":7}`, http.StatusBadRequest, models.ErrInvalidRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp := f.generate(t, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d", resp.StatusCode)
			}
			var body models.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.ErrorCode != tt.wantCode || body.Message == "" {
				t.Errorf("body: %+v", body)
			}
			if (f.fetches > 0) != tt.wantFetch {
				t.Errorf("fetches: %d", f.fetches)
			}
		})
	}
}

func TestPipeline_HistoryAndStatus(t *testing.T) {
	f := newFixture(t)
	f.generate(t, `{"url":"`+docURL("a")+`"}`)
	f.generate(t, `{"url":"`+docURL("private")+`"}`)

	resp, err := http.Get(f.api.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var history struct {
		Generations []models.GenerationRecord `json:"generations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history.Generations) != 2 {
		t.Fatalf("history: %+v", history.Generations)
	}
	if history.Generations[0].ErrorCode != models.ErrNotPublic {
		t.Errorf("newest record should be the failure: %+v", history.Generations[0])
	}

	resp2, err := http.Get(f.api.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var status struct {
		Generations map[string]int64 `json:"generations"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Generations["total"] != 2 || status.Generations["failed"] != 1 {
		t.Errorf("status: %v", status.Generations)
	}
}
