package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and describe exactly
// which option is wrong, so callers can match them with errors.Is().
var (
	// ErrNoMySitemap is returned when the sitemap of the linking site is missing.
	ErrNoMySitemap = errors.New("no sitemap specified: provide your sitemap with --my")

	// ErrNoTargetSitemap is returned when the target sitemap is missing.
	ErrNoTargetSitemap = errors.New("no target sitemap specified: provide it with --sitemap")

	// ErrInvalidTimeout is returned when any timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the extraction pool width is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidThreshold is returned when the score threshold is outside [0,100].
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 100")

	// ErrInvalidFilter is returned when a path filter is not a valid regular expression.
	ErrInvalidFilter = errors.New("invalid path filter")

	// ErrInvalidRate is returned when the classification request rate is not positive.
	ErrInvalidRate = errors.New("invalid request rate: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrEmptyCacheDir is returned when no cache directory is configured.
	ErrEmptyCacheDir = errors.New("cache directory must not be empty")

	// ErrEmptyModel is returned when no classification model is configured.
	ErrEmptyModel = errors.New("classification model must not be empty")
)
