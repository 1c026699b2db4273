package sitemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/crosslink/internal/model"
	"github.com/temoto/robotstxt"
)

// DefaultTimeout bounds each sitemap document fetch.
const DefaultTimeout = 60 * time.Second

// DefaultMaxBodySize is the protocol limit for an uncompressed sitemap.
const DefaultMaxBodySize = 50 * 1024 * 1024

// HeaderFunc returns the User-Agent and extra headers to send to a host.
type HeaderFunc func(host string) (userAgent string, headers map[string]string)

// Resolver fetches sitemaps and flattens them into link sets.
// A Resolver is safe for concurrent use; each Resolve call keeps its own
// visited set.
type Resolver struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	headers     HeaderFunc
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-document fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithMaxBodySize limits the bytes read per document, after decompression.
func WithMaxBodySize(size int64) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.maxBodySize = size
		}
	}
}

// WithHeaders sets per-host request headers.
func WithHeaders(fn HeaderFunc) Option {
	return func(r *Resolver) {
		r.headers = fn
	}
}

// WithLogger sets the logger used for degraded nested documents.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver that fetches with client.
func NewResolver(client *http.Client, opts ...Option) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Resolver{
		client:      client,
		timeout:     DefaultTimeout,
		userAgent:   "crosslink",
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeURL adds the https scheme to URLs written without one.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}

// visitKey identifies a sitemap document for cycle and duplicate
// detection. Scheme and host case, fragments and a trailing slash are
// ignored.
func visitKey(raw string) string {
	normalized := NormalizeURL(raw)
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Resolve fetches rawURL and returns every page URL reachable through it.
// Only a failure of the top-level document is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*model.ResolvedLinkSet, error) {
	normalized := NormalizeURL(rawURL)
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrFetch, rawURL)
	}

	visited := make(map[string]struct{})

	if u.Path == "" || u.Path == "/" {
		entries, err := r.resolveSiteRoot(ctx, u, visited)
		if err != nil {
			return nil, err
		}
		return model.NewResolvedLinkSet(rawURL, entries), nil
	}

	entries, err := r.resolve(ctx, normalized, visited)
	if err != nil {
		return nil, err
	}
	return model.NewResolvedLinkSet(rawURL, entries), nil
}

// resolveSiteRoot resolves the sitemaps announced by robots.txt, or
// /sitemap.xml when there are none. It fails only when every root fails.
func (r *Resolver) resolveSiteRoot(ctx context.Context, site *url.URL, visited map[string]struct{}) ([]model.SitemapEntry, error) {
	roots := r.discover(ctx, site)

	var (
		entries  []model.SitemapEntry
		firstErr error
		ok       int
	)
	for _, root := range roots {
		got, err := r.resolve(ctx, root, visited)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("failed to resolve discovered sitemap", "url", root, "stage", "fetch", "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok++
		entries = append(entries, got...)
	}
	if ok == 0 && firstErr != nil {
		return nil, firstErr
	}
	return entries, nil
}

// discover returns the sitemap URLs listed in the site's robots.txt.
func (r *Resolver) discover(ctx context.Context, site *url.URL) []string {
	base := site.Scheme + "://" + site.Host
	fallback := []string{base + "/sitemap.xml"}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := r.newRequest(ctx, base+"/robots.txt")
	if err != nil {
		return fallback
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", "url", base, "error", err)
		return fallback
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil || len(robots.Sitemaps) == 0 {
		return fallback
	}
	r.logger.Debug("sitemaps discovered from robots.txt", "url", base, "count", len(robots.Sitemaps))
	return robots.Sitemaps
}

// resolve fetches one document and expands it depth-first.
// Errors are returned for this document only; children degrade.
func (r *Resolver) resolve(ctx context.Context, sitemapURL string, visited map[string]struct{}) ([]model.SitemapEntry, error) {
	key := visitKey(sitemapURL)
	if _, seen := visited[key]; seen {
		r.logger.Debug("skipping visited sitemap", "url", sitemapURL)
		return nil, nil
	}
	visited[key] = struct{}{}
	sitemapURL = NormalizeURL(sitemapURL)

	data, err := r.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	doc, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sitemapURL, err)
	}

	switch doc.kind {
	case kindURLSet:
		r.logger.Debug("resolved url set", "url", sitemapURL, "entries", len(doc.entries))
		return doc.entries, nil

	case kindIndex:
		var entries []model.SitemapEntry
		for _, child := range doc.children {
			got, err := r.resolve(ctx, child, visited)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				r.logger.Warn("failed to resolve nested sitemap", "url", child, "parent", sitemapURL, "stage", stage(err), "error", err)
				continue
			}
			entries = append(entries, got...)
		}
		return entries, nil

	default:
		r.logger.Debug("unrecognized sitemap root element", "url", sitemapURL)
		return nil, nil
	}
}

// fetch retrieves and decompresses one document under the resolver timeout.
func (r *Resolver) fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := r.newRequest(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, sitemapURL, err) //nolint:errorlint // only the sentinel is matched
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, r.wrapFetchError(ctx, sitemapURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, sitemapURL, resp.StatusCode)
	}

	data, err := readLimited(resp.Body, r.maxBodySize)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, fmt.Errorf("%s: %w", sitemapURL, err)
		}
		return nil, r.wrapFetchError(ctx, sitemapURL, err)
	}
	data, err = decompress(data, r.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sitemapURL, err)
	}
	return data, nil
}

func (r *Resolver) wrapFetchError(ctx context.Context, sitemapURL string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, sitemapURL, r.timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %v", ErrFetch, sitemapURL, err) //nolint:errorlint // only the sentinel is matched
}

func (r *Resolver) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	ua := r.userAgent
	if r.headers != nil {
		siteUA, headers := r.headers(req.URL.Hostname())
		if siteUA != "" {
			ua = siteUA
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.8")
	return req, nil
}

// stage names the step a nested failure happened in, for logging.
func stage(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTooLarge):
		return "size"
	default:
		return "fetch"
	}
}
