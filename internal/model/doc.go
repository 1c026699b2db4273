// Package model defines the core data structures shared across crosslink.
//
// This package contains the following main types:
//   - ResolvedLinkSet: The flat, deduplicated page list behind a sitemap
//   - PageContent: The normalized title, keywords and text of one page
//   - IntersectionCandidate: A proposed link between two pages
//   - Run: The accumulated state of one start invocation
//
// Models live in their own package because the sitemap, extract, intersect,
// report and database packages all exchange them.
//
// The models are designed to be serializable to JSON for cache files,
// reports and database storage.
package model
