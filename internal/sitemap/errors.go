package sitemap

import "errors"

var (
	// ErrFetch is returned when a sitemap document cannot be retrieved
	// or the server answers with a non-2xx status.
	ErrFetch = errors.New("failed to fetch sitemap")

	// ErrTimeout is returned when fetching a sitemap document exceeds
	// the resolver timeout.
	ErrTimeout = errors.New("sitemap fetch timed out")

	// ErrParse is returned when a sitemap document is not well-formed XML.
	ErrParse = errors.New("failed to parse sitemap")

	// ErrTooLarge is returned when a sitemap document, compressed or
	// decompressed, exceeds the resolver body limit.
	ErrTooLarge = errors.New("sitemap body too large")
)
