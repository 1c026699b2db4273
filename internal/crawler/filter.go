package crawler

import (
	"fmt"
	"net/url"
	"regexp"
)

// PathFilter selects URLs by matching a regular expression against the
// path component only. Scheme, host and query never take part.
type PathFilter struct {
	re *regexp.Regexp
}

// NewPathFilter compiles expr. An empty expression matches every URL.
func NewPathFilter(expr string) (*PathFilter, error) {
	if expr == "" {
		return &PathFilter{}, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid path filter %q: %w", expr, err)
	}
	return &PathFilter{re: re}, nil
}

// Match reports whether the path of rawURL matches.
// URLs that cannot be parsed never match a non-empty filter.
func (f *PathFilter) Match(rawURL string) bool {
	if f == nil || f.re == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return f.re.MatchString(path)
}

// Filter returns the matching URLs in their original order.
func (f *PathFilter) Filter(urls []string) []string {
	if f == nil || f.re == nil {
		return urls
	}
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if f.Match(u) {
			kept = append(kept, u)
		}
	}
	return kept
}

// String returns the source expression.
func (f *PathFilter) String() string {
	if f == nil || f.re == nil {
		return ""
	}
	return f.re.String()
}
