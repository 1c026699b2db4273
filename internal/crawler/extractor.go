package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ErrFetch is returned when a page cannot be retrieved.
var ErrFetch = errors.New("failed to fetch page")

// SiteOverrides returns the User-Agent and extra headers for a host.
// An empty User-Agent keeps the extractor's default.
type SiteOverrides func(host string) (userAgent string, headers map[string]string)

// Extractor fetches a page and isolates its main content.
type Extractor struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	overrides   SiteOverrides
	logger      *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) ExtractorOption {
	return func(e *Extractor) {
		e.userAgent = ua
	}
}

// WithMaxBodySize limits the number of bytes read per page.
func WithMaxBodySize(size int64) ExtractorOption {
	return func(e *Extractor) {
		if size > 0 {
			e.maxBodySize = size
		}
	}
}

// WithSiteOverrides sets per-host request settings.
func WithSiteOverrides(fn SiteOverrides) ExtractorOption {
	return func(e *Extractor) {
		e.overrides = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor using client. The client's Timeout
// bounds each page fetch.
func NewExtractor(client *http.Client, opts ...ExtractorOption) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Extractor{
		client:      client,
		userAgent:   "crosslink",
		maxBodySize: 10 * 1024 * 1024, // 10MB
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches pageURL and returns the inner HTML of its main content.
// A page without a recognizable main content region yields "".
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	body, contentType, err := e.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	reader, err := charset.NewReader(io.LimitReader(body, e.maxBodySize), contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: decode: %v", ErrFetch, pageURL, err) //nolint:errorlint // only the sentinel is matched
	}

	return MainContent(reader)
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) (io.ReadCloser, string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid URL %q: %v", ErrFetch, pageURL, err) //nolint:errorlint // only the sentinel is matched
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err) //nolint:errorlint // only the sentinel is matched
	}

	ua := e.userAgent
	if e.overrides != nil {
		siteUA, headers := e.overrides(u.Hostname())
		if siteUA != "" {
			ua = siteUA
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err) //nolint:errorlint // only the sentinel is matched
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("%w: %s: status %d", ErrFetch, pageURL, resp.StatusCode)
	}

	e.logger.Debug("fetched page", "url", pageURL, "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"))
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// MainContent returns the inner HTML of the main content of a document:
// the first <main> element, or else the first child of <body> that is not
// a header, footer or nav element.
func MainContent(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	sel := doc.Find("main").First()
	if sel.Length() == 0 {
		sel = doc.Find("body").Children().Not("header, footer, nav").First()
	}
	if sel.Length() == 0 {
		return "", nil
	}

	fragment, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("serialise html: %w", err)
	}
	return strings.TrimSpace(fragment), nil
}
