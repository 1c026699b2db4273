package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crosslink/internal/crawler"
	"github.com/nao1215/crosslink/internal/model"
)

// Step names.
const (
	StepResolve   = "resolve"
	StepExtract   = "extract"
	StepIntersect = "intersect"
	StepRank      = "rank"
)

// ErrNoPages is returned when a side has no pages left to evaluate.
var ErrNoPages = errors.New("no pages to evaluate")

// LinkResolver expands a sitemap URL into its page links.
type LinkResolver interface {
	Resolve(ctx context.Context, sitemapURL string) (*model.ResolvedLinkSet, error)
}

// PageExtractor turns page URLs into page contents, in input order.
type PageExtractor interface {
	ExtractAll(ctx context.Context, urls []string) ([]*model.PageContent, error)
}

// PairEngine computes the validated candidates of sources × targets.
type PairEngine interface {
	Compute(ctx context.Context, sources, targets []*model.PageContent) ([]model.IntersectionCandidate, error)
}

// ResolveStep resolves both sitemaps concurrently and applies the path
// filters to their links.
type ResolveStep struct {
	resolver     LinkResolver
	myFilter     *crawler.PathFilter
	targetFilter *crawler.PathFilter
	logger       *slog.Logger
}

// NewResolveStep creates a ResolveStep. Nil filters keep every link.
func NewResolveStep(resolver LinkResolver, myFilter, targetFilter *crawler.PathFilter, logger *slog.Logger) *ResolveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveStep{
		resolver:     resolver,
		myFilter:     myFilter,
		targetFilter: targetFilter,
		logger:       logger,
	}
}

// Name returns the step name.
func (s *ResolveStep) Name() string {
	return StepResolve
}

// Do resolves run.MySitemap and run.TargetSitemap. Either failure fails
// the step.
func (s *ResolveStep) Do(ctx context.Context, run *model.Run) error {
	var mine, target *model.ResolvedLinkSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mine, err = s.resolver.Resolve(gctx, run.MySitemap)
		if err != nil {
			return fmt.Errorf("resolve my sitemap: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		target, err = s.resolver.Resolve(gctx, run.TargetSitemap)
		if err != nil {
			return fmt.Errorf("resolve target sitemap: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	run.MyLinks = mine
	run.TargetLinks = target
	run.MyURLs = s.myFilter.Filter(mine.Links)
	run.TargetURLs = s.targetFilter.Filter(target.Links)

	s.logger.Debug("sitemaps resolved",
		"my_links", mine.Count,
		"my_filtered", len(run.MyURLs),
		"target_links", target.Count,
		"target_filtered", len(run.TargetURLs),
	)
	return nil
}

// ExtractStep extracts the filtered pages of both sites.
type ExtractStep struct {
	extractor PageExtractor
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(extractor PageExtractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do fills run.MyPages and run.TargetPages.
func (s *ExtractStep) Do(ctx context.Context, run *model.Run) error {
	mine, err := s.extractor.ExtractAll(ctx, run.MyURLs)
	if err != nil {
		return fmt.Errorf("extract my pages: %w", err)
	}
	target, err := s.extractor.ExtractAll(ctx, run.TargetURLs)
	if err != nil {
		return fmt.Errorf("extract target pages: %w", err)
	}
	run.MyPages = mine
	run.TargetPages = target
	return nil
}

// IntersectStep evaluates every (my page, target page) pair.
type IntersectStep struct {
	engine PairEngine
	logger *slog.Logger
}

// NewIntersectStep creates an IntersectStep.
func NewIntersectStep(engine PairEngine, logger *slog.Logger) *IntersectStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntersectStep{engine: engine, logger: logger}
}

// Name returns the step name.
func (s *IntersectStep) Name() string {
	return StepIntersect
}

// Do fills run.Candidates. An empty side yields no candidates rather than
// an error, so that an overly narrow filter still produces an (empty)
// report.
func (s *IntersectStep) Do(ctx context.Context, run *model.Run) error {
	if len(run.MyPages) == 0 || len(run.TargetPages) == 0 {
		s.logger.Warn("nothing to intersect",
			"my_pages", len(run.MyPages),
			"target_pages", len(run.TargetPages),
			"reason", ErrNoPages,
		)
		run.Candidates = make([]model.IntersectionCandidate, 0)
		return nil
	}

	candidates, err := s.engine.Compute(ctx, run.MyPages, run.TargetPages)
	if err != nil {
		return fmt.Errorf("intersect pages: %w", err)
	}
	run.Candidates = candidates
	return nil
}

// RankStep orders the candidates by score.
type RankStep struct{}

// NewRankStep creates a RankStep.
func NewRankStep() *RankStep {
	return &RankStep{}
}

// Name returns the step name.
func (s *RankStep) Name() string {
	return StepRank
}

// Do fills run.Ranked.
func (s *RankStep) Do(_ context.Context, run *model.Run) error {
	run.Ranked = model.Rank(run.Candidates)
	if run.Ranked == nil {
		run.Ranked = make([]model.IntersectionCandidate, 0)
	}
	return nil
}
