package model

// SitemapEntry is a single <url> entry of a sitemap URL set.
type SitemapEntry struct {
	// Loc is the page URL. It is the deduplication key.
	Loc string `json:"loc" xml:"loc"`

	// LastMod is the optional last modification date.
	LastMod string `json:"lastmod,omitempty" xml:"lastmod"`

	// ChangeFreq is the optional change frequency hint.
	ChangeFreq string `json:"changefreq,omitempty" xml:"changefreq"`

	// Priority is the optional priority hint, kept as published.
	Priority string `json:"priority,omitempty" xml:"priority"`
}

// ResolvedLinkSet is the flattened result of resolving one sitemap.
//
// Links holds each distinct loc once, in first-seen order. Data holds the
// matching full entries in the same order. Count always equals len(Links).
type ResolvedLinkSet struct {
	// URL is the sitemap the set was resolved from.
	URL string `json:"url"`

	// Links contains the unique page URLs.
	Links []string `json:"links"`

	// Data contains the full sitemap entries behind Links.
	Data []SitemapEntry `json:"data"`

	// Count is the number of unique links.
	Count int `json:"count"`
}

// NewResolvedLinkSet builds a link set from entries, dropping every entry
// whose loc was already seen. The first occurrence wins.
func NewResolvedLinkSet(url string, entries []SitemapEntry) *ResolvedLinkSet {
	seen := make(map[string]struct{}, len(entries))
	data := make([]SitemapEntry, 0, len(entries))
	links := make([]string, 0, len(entries))

	for _, e := range entries {
		if _, ok := seen[e.Loc]; ok {
			continue
		}
		seen[e.Loc] = struct{}{}
		data = append(data, e)
		links = append(links, e.Loc)
	}

	return &ResolvedLinkSet{
		URL:   url,
		Links: links,
		Data:  data,
		Count: len(links),
	}
}
