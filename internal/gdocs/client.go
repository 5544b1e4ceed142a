// Package gdocs fetches the HTML export of publicly shared Google Docs documents.
package gdocs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hyperjump/tategaki/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultExportURL is the HTML export endpoint; %s is replaced by the document id.
	DefaultExportURL = "https://docs.google.com/document/d/%s/export?format=html"
	// DefaultUserAgent identifies the generator to the export endpoint.
	DefaultUserAgent = "Mozilla/5.0 (compatible; 5hon.com EPUB Generator)"

	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 32 << 20
)

// DefaultLoginMarkers appear in the sign-in page served instead of a private document.
var DefaultLoginMarkers = []string{"accounts.google.com", "ServiceLogin"}

var (
	// ErrInvalidURL is returned when no document id can be found in a URL.
	ErrInvalidURL = errors.New("gdocs: no document id in url")
	// ErrNotPublic is returned when the document requires signing in.
	ErrNotPublic = errors.New("gdocs: document is not public")
)

var docIDPattern = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)

// ExtractDocID returns the document id in a Google Docs URL.
func ExtractDocID(url string) (string, error) {
	m := docIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", ErrInvalidURL
	}
	return m[1], nil
}

// Document is a fetched export.
type Document struct {
	ID   string
	HTML string
}

// Client fetches document exports. Requests are spaced by a shared rate limiter.
type Client struct {
	httpClient   *http.Client
	timeout      time.Duration
	exportURL    string
	userAgent    string
	loginMarkers []string
	maxBytes     int64
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall request timeout. It has no effect with WithHTTPClient.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExportURL sets the export URL template. It must contain one %s for the document id.
func WithExportURL(tmpl string) ClientOption {
	return func(c *Client) {
		if tmpl != "" {
			c.exportURL = tmpl
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLoginMarkers sets the substrings that identify a sign-in page.
func WithLoginMarkers(markers []string) ClientOption {
	return func(c *Client) {
		if len(markers) > 0 {
			c.loginMarkers = markers
		}
	}
}

// WithMaxBytes limits the size of an accepted export.
func WithMaxBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client with the default endpoint, user agent and login markers.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:      defaultTimeout,
		exportURL:    DefaultExportURL,
		userAgent:    DefaultUserAgent,
		loginMarkers: DefaultLoginMarkers,
		maxBytes:     defaultMaxBytes,
		limiter:      rate.NewLimiter(rate.Inf, 0),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c
}

// Fetch downloads the HTML export of the document. Failures are *models.GenerationError
// values with code NOT_PUBLIC or FETCH_FAILED; a Document is only returned complete.
func (c *Client) Fetch(ctx context.Context, docID string) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, networkError(fmt.Errorf("rate limit wait: %w", err))
	}

	url := fmt.Sprintf(c.exportURL, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, networkError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("export fetched",
		zap.String("doc_id", docID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, models.NewError(models.ErrNotPublic, models.MsgNotPublic, ErrNotPublic)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, models.NewError(models.ErrFetchFailed,
			fmt.Sprintf("%s（%d）", models.MsgFetchFailed, resp.StatusCode),
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, networkError(fmt.Errorf("reading response: %w", err))
	}
	if int64(len(body)) > c.maxBytes {
		return nil, models.NewError(models.ErrFetchFailed, models.MsgFetchFailed,
			fmt.Errorf("export exceeds %d bytes", c.maxBytes))
	}

	html := string(body)
	for _, marker := range c.loginMarkers {
		if strings.Contains(html, marker) {
			return nil, models.NewError(models.ErrNotPublic, models.MsgNotPublic, ErrNotPublic)
		}
	}
	return &Document{ID: docID, HTML: html}, nil
}

func networkError(err error) error {
	return models.NewError(models.ErrFetchFailed, "ネットワークエラー: "+err.Error(), err)
}
