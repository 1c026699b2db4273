// Package crawler fetches the pages listed in a sitemap and reduces them to
// the parts crosslink works with.
//
// crosslink never follows hyperlinks: the URL set comes from sitemaps only.
// This package therefore has three small pieces:
//
//   - PathFilter keeps the sitemap URLs whose path matches a regular expression.
//   - Extractor fetches one page and isolates its main content as an HTML
//     fragment: the <main> element when present, otherwise the first child of
//     <body> that is not a header, footer or nav.
//   - Text renders an HTML fragment as plain text. Anchor texts proposed by
//     the classifier are validated against this text.
//
// # Usage
//
//	filter, err := crawler.NewPathFilter(`^/blog/`)
//	urls = filter.Filter(urls)
//
//	ex := crawler.NewExtractor(&http.Client{Timeout: 30 * time.Second})
//	fragment, err := ex.Extract(ctx, urls[0])
//	text := crawler.Text(fragment)
package crawler
