package gdocs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/tategaki/internal/models"
)

func TestExtractDocID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/document/d/1AbC_d-9/edit?usp=sharing", "1AbC_d-9", false},
		{"https://docs.google.com/document/d/xyz", "xyz", false},
		{"docs.google.com/document/d/abc/", "abc", false},
		{"https://docs.google.com/spreadsheets/d/abc/edit", "", true},
		{"https://example.com", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractDocID(tt.url)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ExtractDocID(%q) err = %v, want ErrInvalidURL", tt.url, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ExtractDocID(%q) = %q, %v; want %q", tt.url, got, err, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithExportURL(srv.URL + "/document/d/%s/export?format=html")}, opts...)
	return NewClient(opts...)
}

func TestFetch_success(t *testing.T) {
	var gotPath, gotUA, gotFormat string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("format")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><title>T</title><body><p>x</p></body></html>"))
	})
	doc, err := c.Fetch(context.Background(), "doc123")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.ID != "doc123" || !strings.Contains(doc.HTML, "<p>x</p>") {
		t.Errorf("doc = %+v", doc)
	}
	if gotPath != "/document/d/doc123/export" || gotFormat != "html" {
		t.Errorf("request = %s format=%s", gotPath, gotFormat)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetch_failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode models.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, "", models.ErrNotPublic},
		{"forbidden", http.StatusForbidden, "", models.ErrNotPublic},
		{"not found", http.StatusNotFound, "", models.ErrFetchFailed},
		{"server error", http.StatusInternalServerError, "", models.ErrFetchFailed},
		{"login page", http.StatusOK, `<a href="https://accounts.google.com/signin">`, models.ErrNotPublic},
		{"service login", http.StatusOK, `<form action="ServiceLogin">`, models.ErrNotPublic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.Fetch(context.Background(), "id")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := models.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestFetch_statusInMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Fetch(context.Background(), "id")
	if got := models.ResponseFor(err).Message; !strings.Contains(got, "404") {
		t.Errorf("message = %q, want status code", got)
	}
}

func TestFetch_notPublicSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := c.Fetch(context.Background(), "id"); !errors.Is(err, ErrNotPublic) {
		t.Errorf("err = %v, want ErrNotPublic", err)
	}
}

func TestFetch_customLoginMarkers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("please sign in at sso.example"))
	}, WithLoginMarkers([]string{"sso.example"}))
	if _, err := c.Fetch(context.Background(), "id"); models.CodeOf(err) != models.ErrNotPublic {
		t.Errorf("err = %v, want NOT_PUBLIC", err)
	}
}

func TestFetch_tooLarge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 64)))
	}, WithMaxBytes(16))
	if _, err := c.Fetch(context.Background(), "id"); models.CodeOf(err) != models.ErrFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

func TestFetch_transportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	c := NewClient(WithExportURL(url + "/%s"))
	_, err := c.Fetch(context.Background(), "id")
	if models.CodeOf(err) != models.ErrFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

func TestFetch_cancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>x</p>"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "id"); models.CodeOf(err) != models.ErrFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

func TestFetch_rateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<p>x</p>"))
	}, WithRateLimit(0.001, 1))

	if _, err := c.Fetch(context.Background(), "a"); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx, "b"); err == nil {
		t.Fatal("second Fetch should wait past the deadline and fail")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}
