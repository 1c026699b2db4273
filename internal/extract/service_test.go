package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/crosslink/internal/cache"
	"github.com/nao1215/crosslink/internal/classifier"
	"github.com/nao1215/crosslink/internal/model"
)

// fakeFetcher serves fragments from a map and counts calls.
type fakeFetcher struct {
	fragments map[string]string
	fail      map[string]bool
	delay     func(url string) time.Duration
	calls     atomic.Int64
}

func (f *fakeFetcher) Extract(ctx context.Context, pageURL string) (string, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(pageURL)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail[pageURL] {
		return "", fmt.Errorf("fetch %s: boom", pageURL)
	}
	return f.fragments[pageURL], nil
}

// fakeClassifier titles a page with its URL and counts calls.
type fakeClassifier struct {
	mu      sync.Mutex
	fail    map[string]error
	content map[string]string
	calls   atomic.Int64
	seen    []classifier.PageRequest
}

func (c *fakeClassifier) ClassifyPage(_ context.Context, req classifier.PageRequest) (*classifier.PageResult, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.seen = append(c.seen, req)
	c.mu.Unlock()
	if err := c.fail[req.URL]; err != nil {
		return nil, err
	}
	return &classifier.PageResult{
		Title:    "Title of " + req.URL,
		Keywords: []string{"kw"},
		Content:  c.content[req.URL],
	}, nil
}

func (c *fakeClassifier) ClassifyPair(context.Context, classifier.PairRequest) ([]model.IntersectionCandidate, error) {
	return nil, errors.New("not used")
}

func newStore(t *testing.T, opts ...cache.Option) *cache.Store {
	t.Helper()
	s, err := cache.New(t.TempDir(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testURLs(n int) ([]string, map[string]string) {
	urls := make([]string, 0, n)
	fragments := make(map[string]string, n)
	for i := range n {
		u := fmt.Sprintf("https://a.example/page-%d", i)
		urls = append(urls, u)
		fragments[u] = fmt.Sprintf("<h1>Page %d</h1><p>body %d</p>", i, i)
	}
	return urls, fragments
}

func TestExtractAll(t *testing.T) {
	t.Parallel()

	t.Run("classifies every page in input order", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(12)
		fetcher := &fakeFetcher{
			fragments: fragments,
			delay: func(u string) time.Duration {
				return time.Duration(len(u)%4) * time.Millisecond
			},
		}
		cls := &fakeClassifier{}
		svc := New(newStore(t), fetcher, cls, WithConcurrency(4), WithLogger(quietLogger()))

		pages, err := svc.ExtractAll(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != len(urls) {
			t.Fatalf("expected %d pages, got %d", len(urls), len(pages))
		}
		for i, p := range pages {
			if p.URL != urls[i] {
				t.Errorf("page %d: expected url %q, got %q", i, urls[i], p.URL)
			}
			if p.Title != "Title of "+urls[i] {
				t.Errorf("page %d: unexpected title %q", i, p.Title)
			}
			want := fmt.Sprintf("Page %d body %d", i, i)
			if p.Content != want {
				t.Errorf("page %d: expected local text %q, got %q", i, want, p.Content)
			}
		}
		if cls.calls.Load() != int64(len(urls)) {
			t.Errorf("expected %d classifier calls, got %d", len(urls), cls.calls.Load())
		}
	})

	t.Run("second run is served from cache", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(5)
		store := newStore(t)

		first := New(store, &fakeFetcher{fragments: fragments}, &fakeClassifier{}, WithLogger(quietLogger()))
		want, err := first.ExtractAll(context.Background(), urls)
		if err != nil {
			t.Fatal(err)
		}
		_, jsonPath := store.PagePaths(cache.Key(urls[0]))
		before, err := os.ReadFile(jsonPath)
		if err != nil {
			t.Fatal(err)
		}

		fetcher := &fakeFetcher{fragments: fragments}
		cls := &fakeClassifier{}
		var cachedEvents atomic.Int64
		second := New(store, fetcher, cls, WithLogger(quietLogger()), WithProgress(func(ev Event) {
			if ev.Cached {
				cachedEvents.Add(1)
			}
		}))
		got, err := second.ExtractAll(context.Background(), urls)
		if err != nil {
			t.Fatal(err)
		}

		if fetcher.calls.Load() != 0 || cls.calls.Load() != 0 {
			t.Errorf("expected no collaborator calls, got fetch=%d classify=%d", fetcher.calls.Load(), cls.calls.Load())
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected identical pages\nwant %+v\ngot  %+v", want, got)
		}
		if cachedEvents.Load() != int64(len(urls)) {
			t.Errorf("expected %d cached events, got %d", len(urls), cachedEvents.Load())
		}
		after, err := os.ReadFile(jsonPath)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(before, after) {
			t.Error("expected cache file to be left untouched")
		}
	})

	t.Run("fetch failure yields empty content", func(t *testing.T) {
		t.Parallel()

		u := "https://a.example/down"
		store := newStore(t)
		cls := &fakeClassifier{}
		svc := New(store, &fakeFetcher{fail: map[string]bool{u: true}}, cls, WithLogger(quietLogger()))

		pages, err := svc.ExtractAll(context.Background(), []string{u})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 || pages[0].Content != "" {
			t.Fatalf("expected one empty page, got %+v", pages)
		}
		if cls.calls.Load() != 1 {
			t.Errorf("expected classification of the empty page, got %d calls", cls.calls.Load())
		}
		htmlPath, _ := store.PagePaths(cache.Key(u))
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			t.Fatalf("expected fragment file: %v", err)
		}
		if len(data) != 0 {
			t.Errorf("expected empty fragment, got %q", data)
		}
	})

	t.Run("classification failure skips the page", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(3)
		store := newStore(t)
		cls := &fakeClassifier{fail: map[string]error{
			urls[1]: fmt.Errorf("%w: status 500", classifier.ErrCollaborator),
		}}
		var skipped []string
		svc := New(store, &fakeFetcher{fragments: fragments}, cls, WithLogger(quietLogger()), WithProgress(func(ev Event) {
			if ev.Skipped {
				skipped = append(skipped, ev.URL)
			}
		}))

		pages, err := svc.ExtractAll(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 2 || pages[0].URL != urls[0] || pages[1].URL != urls[2] {
			t.Fatalf("expected pages 0 and 2, got %+v", pages)
		}
		if len(skipped) != 1 || skipped[0] != urls[1] {
			t.Errorf("expected skipped %q, got %v", urls[1], skipped)
		}
		_, jsonPath := store.PagePaths(cache.Key(urls[1]))
		if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
			t.Errorf("expected no content file for skipped page, got %v", err)
		}
	})

	t.Run("authentication failure aborts", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(3)
		authErr := fmt.Errorf("%w: %w", classifier.ErrCollaborator, classifier.ErrAuth)
		cls := &fakeClassifier{fail: map[string]error{urls[0]: authErr, urls[1]: authErr, urls[2]: authErr}}
		svc := New(newStore(t), &fakeFetcher{fragments: fragments}, cls, WithLogger(quietLogger()))

		_, err := svc.ExtractAll(context.Background(), urls)
		if !errors.Is(err, classifier.ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
	})

	t.Run("classifier content is preferred", func(t *testing.T) {
		t.Parallel()

		u := "https://a.example/x"
		cls := &fakeClassifier{content: map[string]string{u: "rewritten"}}
		svc := New(newStore(t), &fakeFetcher{fragments: map[string]string{u: "<p>local</p>"}}, cls, WithLogger(quietLogger()))

		pages, err := svc.ExtractAll(context.Background(), []string{u})
		if err != nil {
			t.Fatal(err)
		}
		if pages[0].Content != "rewritten" {
			t.Errorf("expected classifier content, got %q", pages[0].Content)
		}
		if cls.seen[0].Text != "local" || cls.seen[0].Fragment != "<p>local</p>" {
			t.Errorf("unexpected request %+v", cls.seen[0])
		}
	})

	t.Run("half cached page is recomputed", func(t *testing.T) {
		t.Parallel()

		u := "https://a.example/half"
		store := newStore(t)
		htmlPath, _ := store.PagePaths(cache.Key(u))
		if err := store.WriteRaw(htmlPath, []byte("<p>stale</p>")); err != nil {
			t.Fatal(err)
		}
		fetcher := &fakeFetcher{fragments: map[string]string{u: "<p>fresh</p>"}}
		svc := New(store, fetcher, &fakeClassifier{}, WithLogger(quietLogger()))

		pages, err := svc.ExtractAll(context.Background(), []string{u})
		if err != nil {
			t.Fatal(err)
		}
		if fetcher.calls.Load() != 1 {
			t.Errorf("expected a fetch, got %d", fetcher.calls.Load())
		}
		if pages[0].Content != "fresh" {
			t.Errorf("expected fresh content, got %q", pages[0].Content)
		}
	})

	t.Run("cached entry without url gets the input url", func(t *testing.T) {
		t.Parallel()

		u := "https://a.example/legacy"
		store := newStore(t)
		htmlPath, jsonPath := store.PagePaths(cache.Key(u))
		if err := store.WriteRaw(htmlPath, []byte("<p>x</p>")); err != nil {
			t.Fatal(err)
		}
		if err := store.WriteRaw(jsonPath, []byte(`{"title":"Legacy","keywords":null,"content":"x"}`)); err != nil {
			t.Fatal(err)
		}
		svc := New(store, &fakeFetcher{}, &fakeClassifier{}, WithLogger(quietLogger()))

		pages, err := svc.ExtractAll(context.Background(), []string{u})
		if err != nil {
			t.Fatal(err)
		}
		if pages[0].URL != u || pages[0].Title != "Legacy" || pages[0].Keywords == nil {
			t.Errorf("unexpected page %+v", pages[0])
		}
	})

	t.Run("bypass recomputes cached pages", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(2)
		root := t.TempDir()
		store, err := cache.New(root)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := New(store, &fakeFetcher{fragments: fragments}, &fakeClassifier{}, WithLogger(quietLogger())).ExtractAll(context.Background(), urls); err != nil {
			t.Fatal(err)
		}

		bypass, err := cache.New(root, cache.WithBypass(true))
		if err != nil {
			t.Fatal(err)
		}
		cls := &fakeClassifier{}
		if _, err := New(bypass, &fakeFetcher{fragments: fragments}, cls, WithLogger(quietLogger())).ExtractAll(context.Background(), urls); err != nil {
			t.Fatal(err)
		}
		if cls.calls.Load() != int64(len(urls)) {
			t.Errorf("expected %d classifier calls, got %d", len(urls), cls.calls.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		urls, fragments := testURLs(4)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := New(newStore(t), &fakeFetcher{fragments: fragments}, &fakeClassifier{}, WithLogger(quietLogger()))
		if _, err := svc.ExtractAll(ctx, urls); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		svc := New(newStore(t), &fakeFetcher{}, &fakeClassifier{}, WithLogger(quietLogger()))
		pages, err := svc.ExtractAll(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(pages) != 0 {
			t.Errorf("expected no pages, got %d", len(pages))
		}
	})
}

func TestExtractStoresPageContent(t *testing.T) {
	t.Parallel()

	u := "https://a.example/stored"
	store := newStore(t)
	svc := New(store, &fakeFetcher{fragments: map[string]string{u: "<p>hello world</p>"}}, &fakeClassifier{}, WithLogger(quietLogger()))

	page, cached, err := svc.Extract(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("expected a miss")
	}

	_, jsonPath := store.PagePaths(cache.Key(u))
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"url"`, `"title"`, `"keywords"`, `"content"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in stored JSON: %s", field, data)
		}
	}
	if page.Content != "hello world" {
		t.Errorf("unexpected content %q", page.Content)
	}
}

func TestExtractWarnsOnEmptyPage(t *testing.T) {
	t.Parallel()

	u := "https://a.example/blank"
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := New(newStore(t), &fakeFetcher{fragments: map[string]string{u: "<div></div>"}}, &fakeClassifier{}, WithLogger(logger))

	page, _, err := svc.Extract(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if !page.IsEmpty() {
		t.Fatalf("content = %q, want empty", page.Content)
	}
	if !strings.Contains(logs.String(), "page has no text") || !strings.Contains(logs.String(), u) {
		t.Errorf("expected an empty-page warning, got %q", logs.String())
	}
}
