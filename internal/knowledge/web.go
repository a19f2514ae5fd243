package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WebFetcher downloads a page and keeps the text of its <p> elements.
type WebFetcher struct {
	client      *http.Client
	maxBodySize int64  // Maximum response body size to read
	userAgent   string // User-Agent header value
}

// FetchOption configures the WebFetcher.
type FetchOption func(*WebFetcher)

// WithTimeout sets the HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) FetchOption {
	return func(f *WebFetcher) {
		f.client.Timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) FetchOption {
	return func(f *WebFetcher) {
		f.maxBodySize = size
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(f *WebFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying client, keeping its timeout.
func WithHTTPClient(c *http.Client) FetchOption {
	return func(f *WebFetcher) {
		f.client = c
	}
}

func NewWebFetcher(opts ...FetchOption) *WebFetcher {
	f := &WebFetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBodySize: 10 * 1024 * 1024, // 10MB default
		userAgent:   "gipl-assistant/1.0",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url and returns the space-joined text of its paragraphs.
// Statuses of 400 and above are errors.
func (f *WebFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s for url: %s", resp.Status, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return "", fmt.Errorf("page exceeds %d bytes: %s", f.maxBodySize, url)
	}
	return ParseParagraphs(bytes.NewReader(body))
}

// ParseParagraphs returns the text of every <p> element in r joined by
// single spaces. All other markup is discarded.
func ParseParagraphs(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, " "), nil
}
