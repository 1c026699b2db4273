package cache

import (
	"crypto/md5" //nolint:gosec // md5 names cache files, it is not used for security
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// IntersectionsDir is the sub-directory holding pair results.
const IntersectionsDir = "intersections"

// ErrEmptyRoot is returned by New when no root directory is given.
var ErrEmptyRoot = errors.New("cache root directory must not be empty")

// Key returns the cache key of s: its md5 digest in lowercase hex.
func Key(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// PairKey returns the cache key of an ordered (source, target) pair.
func PairKey(source, target string) string {
	return Key(source + ":" + target)
}

// Stats is a point-in-time copy of the store counters.
type Stats struct {
	Hits   int64
	Misses int64
	Writes int64
}

// Store is a file-backed cache rooted at a directory.
// It is safe for concurrent use.
type Store struct {
	root   string
	bypass bool

	hits   atomic.Int64
	misses atomic.Int64
	writes atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithBypass makes every lookup miss so that results are recomputed and
// overwritten.
func WithBypass(bypass bool) Option {
	return func(s *Store) {
		s.bypass = bypass
	}
}

// New creates a Store rooted at root. The directory and its
// intersections sub-directory are created if absent.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(root, IntersectionsDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return s, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Bypass reports whether lookups are disabled.
func (s *Store) Bypass() bool {
	return s.bypass
}

// PagePaths returns the fragment and content file paths of a page key.
func (s *Store) PagePaths(key string) (htmlPath, jsonPath string) {
	return filepath.Join(s.root, key+".html"), filepath.Join(s.root, key+".json")
}

// PairPath returns the candidate list path of a pair key.
func (s *Store) PairPath(key string) string {
	return filepath.Join(s.root, IntersectionsDir, key+".json")
}

// Exists reports whether every path is present. The result counts as a
// hit or a miss. In bypass mode it is always false.
func (s *Store) Exists(paths ...string) bool {
	if s.bypass {
		s.misses.Add(1)
		return false
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			s.misses.Add(1)
			return false
		}
	}
	s.hits.Add(1)
	return true
}

// ReadJSON decodes the file at path into v.
func (s *Store) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a key under root
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode cache file %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v with indentation and stores it at path.
func (s *Store) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return s.WriteRaw(path, data)
}

// WriteRaw stores data at path atomically.
func (s *Store) WriteRaw(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	s.writes.Add(1)
	return nil
}

// Invalidate removes the page files of key. Missing files are ignored.
func (s *Store) Invalidate(key string) error {
	htmlPath, jsonPath := s.PagePaths(key)
	return removeAll(htmlPath, jsonPath)
}

// InvalidatePair removes the candidate list of a pair key.
func (s *Store) InvalidatePair(key string) error {
	return removeAll(s.PairPath(key))
}

// Clear removes every entry and recreates an empty layout.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.root, IntersectionsDir), 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Writes: s.writes.Load(),
	}
}

func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
