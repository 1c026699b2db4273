// Package sitemap resolves a sitemap URL into the flat, deduplicated list of
// page URLs it describes.
//
// A sitemap document is either a URL set, whose entries are returned, or a
// sitemap index, whose children are resolved recursively and merged in
// document order. Documents with any other root element contribute nothing.
// Gzip-compressed documents are decompressed transparently. A document
// larger than the body limit (50MB by default) fails with ErrTooLarge.
//
// Only the failure of the requested document is returned to the caller.
// Failures of nested documents are logged and contribute nothing, and a
// sitemap that was already visited during one resolution is skipped so that
// cyclic indexes terminate. Visits are compared on the normalized URL.
//
// When the requested URL points at a site root ("https://example.com" or
// "https://example.com/"), the Sitemap directives of its robots.txt are used
// as the documents to resolve, falling back to /sitemap.xml.
package sitemap
