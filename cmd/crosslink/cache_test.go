package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/crosslink/internal/cache"
)

func runCacheCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCacheCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedCache(t *testing.T, dir string, pageURLs []string, pairs [][2]string) *cache.Store {
	t.Helper()
	store, err := cache.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range pageURLs {
		htmlPath, jsonPath := store.PagePaths(cache.Key(u))
		if err := store.WriteRaw(htmlPath, []byte("<p>x</p>")); err != nil {
			t.Fatal(err)
		}
		if err := store.WriteJSON(jsonPath, map[string]string{"url": u}); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range pairs {
		if err := store.WriteJSON(store.PairPath(cache.PairKey(p[0], p[1])), []string{}); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cache")
	a, b, c := "https://a.example/1", "https://b.example/1", "https://a.example/2"
	store := seedCache(t, dir, []string{a, b, c}, [][2]string{{a, b}, {c, b}})

	out, err := runCacheCmd(t, "invalidate", a, "--pair-with", b, "--cache-dir", dir)
	if err != nil {
		t.Fatalf("invalidate error = %v", err)
	}
	if !strings.Contains(out, "Invalidated "+a) {
		t.Errorf("output = %q", out)
	}

	htmlA, jsonA := store.PagePaths(cache.Key(a))
	if store.Exists(htmlA) || store.Exists(jsonA) {
		t.Error("page entry of a still present")
	}
	if store.Exists(store.PairPath(cache.PairKey(a, b))) {
		t.Error("pair entry a->b still present")
	}

	htmlC, jsonC := store.PagePaths(cache.Key(c))
	if !store.Exists(htmlC, jsonC) {
		t.Error("unrelated page entry was removed")
	}
	if !store.Exists(store.PairPath(cache.PairKey(c, b))) {
		t.Error("unrelated pair entry was removed")
	}

	if _, err := runCacheCmd(t, "invalidate", "--cache-dir", dir); err == nil {
		t.Error("expected error without URLs")
	}
}

func TestCacheClear(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cache")
	u := "https://a.example/1"
	store := seedCache(t, dir, []string{u}, [][2]string{{u, "https://b.example/1"}})

	out, err := runCacheCmd(t, "clear", "--cache-dir", dir)
	if err != nil {
		t.Fatalf("clear error = %v", err)
	}
	if !strings.Contains(out, "Cleared") {
		t.Errorf("output = %q", out)
	}

	htmlPath, jsonPath := store.PagePaths(cache.Key(u))
	if store.Exists(htmlPath) || store.Exists(jsonPath) {
		t.Error("page entry survived clear")
	}
	if store.Exists(store.PairPath(cache.PairKey(u, "https://b.example/1"))) {
		t.Error("pair entry survived clear")
	}
}
