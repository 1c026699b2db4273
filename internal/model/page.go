package model

// PageContent is the extraction result for a single page.
// One instance exists per distinct page URL. It is produced either by
// decoding a cache file or by running the extraction and classification
// collaborators, and it is never modified afterwards.
type PageContent struct {
	// URL is the page URL exactly as listed in the sitemap.
	URL string `json:"url"`

	// Title is the main title of the page.
	Title string `json:"title"`

	// Keywords are linkable phrases found in the content.
	// They never repeat the title.
	Keywords []string `json:"keywords"`

	// Content is the plain-text body of the page without markup.
	// Anchor texts proposed for this page must occur in it verbatim.
	Content string `json:"content"`
}

// IsEmpty reports whether the page carries no usable text.
func (p *PageContent) IsEmpty() bool {
	return p == nil || p.Content == ""
}
