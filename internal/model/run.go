package model

import "time"

// Run is the state accumulated by one start invocation.
// Each pipeline step reads what earlier steps produced and fills in its
// own part.
//
// A single struct keeps the whole run serializable for the history
// database and the JSON report.
type Run struct {
	// MySitemap is the sitemap URL of the site that will receive links.
	MySitemap string `json:"my_sitemap"`

	// TargetSitemap is the sitemap URL of the site being linked to.
	TargetSitemap string `json:"target_sitemap"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time the pipeline took.
	Duration time.Duration `json:"duration"`

	// MyLinks and TargetLinks are the resolved sitemaps.
	MyLinks     *ResolvedLinkSet `json:"my_links,omitempty"`
	TargetLinks *ResolvedLinkSet `json:"target_links,omitempty"`

	// MyURLs and TargetURLs are the links left after path filtering.
	MyURLs     []string `json:"my_urls,omitempty"`
	TargetURLs []string `json:"target_urls,omitempty"`

	// MyPages and TargetPages are the extracted page contents.
	MyPages     []*PageContent `json:"-"`
	TargetPages []*PageContent `json:"-"`

	// Candidates are the validated candidates in discovery order.
	Candidates []IntersectionCandidate `json:"-"`

	// Ranked are the candidates ordered by score.
	Ranked []IntersectionCandidate `json:"candidates"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRun creates a Run for the given pair of sitemaps.
func NewRun(mySitemap, targetSitemap string) *Run {
	return &Run{
		MySitemap:      mySitemap,
		TargetSitemap:  targetSitemap,
		StartedAt:      time.Now(),
		PerformedSteps: make([]string, 0),
	}
}

// PairCount returns the size of the cross product the run evaluates.
func (r *Run) PairCount() int {
	return len(r.MyPages) * len(r.TargetPages)
}
