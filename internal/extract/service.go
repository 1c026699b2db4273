package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/crosslink/internal/cache"
	"github.com/nao1215/crosslink/internal/classifier"
	"github.com/nao1215/crosslink/internal/crawler"
	"github.com/nao1215/crosslink/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency is the default number of pages processed at once.
const DefaultConcurrency = 8

// Fetcher returns the main-content HTML fragment of a page.
type Fetcher interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Event reports the outcome of one URL.
type Event struct {
	// Index is the 1-based position of the URL in the batch.
	Index int
	Total int
	URL   string

	// Cached is true when the page came from the cache.
	Cached bool

	// Skipped is true when the page was left out of the result.
	Skipped bool
	Err     error
}

// Service extracts and classifies pages.
type Service struct {
	store       *cache.Store
	fetcher     Fetcher
	classifier  classifier.Classifier
	concurrency int
	logger      *slog.Logger

	sf singleflight.Group

	progressMu sync.Mutex
	progress   func(Event)
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets the number of pages processed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProgress sets a callback invoked once per URL. Calls are serialized.
func WithProgress(fn func(Event)) Option {
	return func(s *Service) {
		s.progress = fn
	}
}

// New creates a Service.
func New(store *cache.Store, fetcher Fetcher, cls classifier.Classifier, opts ...Option) *Service {
	s := &Service{
		store:       store,
		fetcher:     fetcher,
		classifier:  cls,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type loaded struct {
	page   *model.PageContent
	cached bool
}

// ExtractAll returns the page contents of urls in input order.
// Skipped pages are omitted; the remaining order is preserved.
func (s *Service) ExtractAll(ctx context.Context, urls []string) ([]*model.PageContent, error) {
	start := time.Now()
	results := make([]*model.PageContent, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			page, cached, err := s.Extract(gctx, u)
			ev := Event{Index: i + 1, Total: len(urls), URL: u, Cached: cached}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if classifier.IsFatal(err) {
					return err
				}
				s.logger.Warn("skipping page", "url", u, "stage", "classify", "error", err)
				ev.Skipped = true
				ev.Err = err
				s.report(ev)
				return nil
			}

			results[i] = page
			s.report(ev)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	pages := make([]*model.PageContent, 0, len(results))
	for _, p := range results {
		if p != nil {
			pages = append(pages, p)
		}
	}

	s.logger.Debug("extraction complete",
		"urls", len(urls),
		"pages", len(pages),
		"elapsed", time.Since(start),
	)
	return pages, nil
}

// Extract returns the content of one page and whether it came from the
// cache. Concurrent calls for the same URL share one computation.
func (s *Service) Extract(ctx context.Context, pageURL string) (*model.PageContent, bool, error) {
	key := cache.Key(pageURL)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		page, cached, err := s.load(ctx, pageURL, key)
		if err != nil {
			return nil, err
		}
		return loaded{page: page, cached: cached}, nil
	})
	if err != nil {
		return nil, false, err
	}
	l, _ := v.(loaded)
	return l.page, l.cached, nil
}

func (s *Service) load(ctx context.Context, pageURL, key string) (*model.PageContent, bool, error) {
	htmlPath, jsonPath := s.store.PagePaths(key)

	if s.store.Exists(htmlPath, jsonPath) {
		var page model.PageContent
		err := s.store.ReadJSON(jsonPath, &page)
		if err == nil {
			if page.URL == "" {
				page.URL = pageURL
			}
			if page.Keywords == nil {
				page.Keywords = []string{}
			}
			s.logger.Debug("cache hit", "url", pageURL, "key", key)
			return &page, true, nil
		}
		s.logger.Warn("ignoring unreadable cache entry", "url", pageURL, "key", key, "error", err)
	}

	fragment, err := s.fetcher.Extract(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		s.logger.Warn("using empty content", "url", pageURL, "stage", "extract", "error", err)
		fragment = ""
	}
	if err := s.store.WriteRaw(htmlPath, []byte(fragment)); err != nil {
		return nil, false, fmt.Errorf("store fragment of %s: %w", pageURL, err)
	}

	text := crawler.Text(fragment)
	res, err := s.classifier.ClassifyPage(ctx, classifier.PageRequest{
		URL:      pageURL,
		Fragment: fragment,
		Text:     text,
	})
	if err != nil {
		return nil, false, fmt.Errorf("classify %s: %w", pageURL, err)
	}
	if res == nil {
		return nil, false, fmt.Errorf("classify %s: %w", pageURL, errNoResult)
	}

	content := res.Content
	if strings.TrimSpace(content) == "" {
		content = text
	}
	keywords := res.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	page := &model.PageContent{
		URL:      pageURL,
		Title:    res.Title,
		Keywords: keywords,
		Content:  content,
	}

	if page.IsEmpty() {
		s.logger.Warn("page has no text; no anchor can match it", "url", pageURL)
	}

	if err := s.store.WriteJSON(jsonPath, page); err != nil {
		return nil, false, fmt.Errorf("store content of %s: %w", pageURL, err)
	}
	s.logger.Debug("page classified", "url", pageURL, "key", key, "keywords", len(keywords))
	return page, false, nil
}

var errNoResult = errors.New("classifier returned no result")

func (s *Service) report(ev Event) {
	if s.progress == nil {
		return
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.progress(ev)
}
