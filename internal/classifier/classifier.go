package classifier

import (
	"context"
	"errors"

	"github.com/nao1215/crosslink/internal/model"
)

var (
	// ErrCollaborator is returned when a classification call fails.
	ErrCollaborator = errors.New("classification failed")

	// ErrAuth is returned, together with ErrCollaborator, when the service
	// rejects or lacks credentials. Retrying other items cannot succeed.
	ErrAuth = errors.New("classification service authentication failed")
)

// PageRequest describes one page to classify.
type PageRequest struct {
	// URL is the page URL.
	URL string

	// Fragment is the main-content HTML of the page.
	Fragment string

	// Text is the plain-text rendition of Fragment.
	Text string
}

// PageResult is the classification of one page.
type PageResult struct {
	// Title is the main title of the page.
	Title string

	// Keywords are linkable phrases of the page.
	Keywords []string

	// Content is the page text as the classifier sees it. Empty means the
	// caller keeps its own plain-text rendition.
	Content string
}

// PairRequest describes an ordered pair of pages.
type PairRequest struct {
	Source *model.PageContent
	Target *model.PageContent
}

// Classifier answers page and pair questions.
type Classifier interface {
	// ClassifyPage returns the title and keywords of a page.
	ClassifyPage(ctx context.Context, req PageRequest) (*PageResult, error)

	// ClassifyPair proposes links from req.Source to req.Target.
	// The candidates are unvalidated.
	ClassifyPair(ctx context.Context, req PairRequest) ([]model.IntersectionCandidate, error)
}

// IsFatal reports whether err makes every further classification fail.
// Cancellation of the caller's context is not covered; callers check
// their own context.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth)
}
