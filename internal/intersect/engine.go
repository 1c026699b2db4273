package intersect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/crosslink/internal/cache"
	"github.com/nao1215/crosslink/internal/classifier"
	"github.com/nao1215/crosslink/internal/model"
)

// Event reports the outcome of one pair.
type Event struct {
	// Index is the 1-based position of the pair in the cross product.
	Index  int
	Total  int
	Source string
	Target string

	// Cached is true when the pair came from the cache.
	Cached bool

	// Kept and Rejected count the candidates of a computed pair.
	Kept     int
	Rejected int

	// Skipped is true when classification failed.
	Skipped bool
	Err     error
}

// Summary aggregates one Compute call.
type Summary struct {
	Pairs    int
	Cached   int
	Skipped  int
	Kept     int
	Rejected int
}

// Engine computes link candidates for page pairs.
type Engine struct {
	store      *cache.Store
	classifier classifier.Classifier
	threshold  float64
	logger     *slog.Logger
	progress   func(Event)
	summary    Summary
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the minimum score, inclusive.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgress sets a callback invoked once per pair.
func WithProgress(fn func(Event)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// New creates an Engine with the default threshold.
func New(store *cache.Store, cls classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		classifier: cls,
		threshold:  model.DefaultScoreThreshold,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary returns the counters of the last Compute call.
func (e *Engine) Summary() Summary {
	return e.summary
}

// Compute evaluates sources × targets and returns the accumulated
// candidates in evaluation order. A pair whose classification fails is
// skipped; an authentication failure or cancellation aborts.
func (e *Engine) Compute(ctx context.Context, sources, targets []*model.PageContent) ([]model.IntersectionCandidate, error) {
	start := time.Now()
	total := len(sources) * len(targets)
	e.summary = Summary{Pairs: total}
	result := make([]model.IntersectionCandidate, 0)

	index := 0
	for _, src := range sources {
		for _, tgt := range targets {
			index++
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if src == nil || tgt == nil {
				continue
			}

			ev := Event{Index: index, Total: total, Source: src.URL, Target: tgt.URL}
			candidates, cached, err := e.pair(ctx, src, tgt, &ev)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if classifier.IsFatal(err) {
					return nil, err
				}
				e.logger.Warn("skipping pair", "source", src.URL, "target", tgt.URL, "stage", "classify", "error", err)
				ev.Skipped = true
				ev.Err = err
				e.summary.Skipped++
				e.report(ev)
				continue
			}

			ev.Cached = cached
			if cached {
				e.summary.Cached++
			}
			e.summary.Kept += len(candidates)
			e.summary.Rejected += ev.Rejected
			result = append(result, candidates...)
			e.report(ev)
		}
	}

	e.logger.Debug("intersection complete",
		"pairs", total,
		"candidates", len(result),
		"elapsed", time.Since(start),
	)
	return result, nil
}

func (e *Engine) pair(ctx context.Context, src, tgt *model.PageContent, ev *Event) ([]model.IntersectionCandidate, bool, error) {
	key := cache.PairKey(src.URL, tgt.URL)
	path := e.store.PairPath(key)

	if e.store.Exists(path) {
		var cached []model.IntersectionCandidate
		err := e.store.ReadJSON(path, &cached)
		if err == nil {
			ev.Kept = len(cached)
			return cached, true, nil
		}
		e.logger.Warn("ignoring unreadable pair cache entry", "source", src.URL, "target", tgt.URL, "key", key, "error", err)
	}

	raw, err := e.classifier.ClassifyPair(ctx, classifier.PairRequest{Source: src, Target: tgt})
	if err != nil {
		return nil, false, fmt.Errorf("classify pair %s -> %s: %w", src.URL, tgt.URL, err)
	}

	kept, rejected := Validate(src, tgt, raw, e.threshold)
	ev.Kept = len(kept)
	ev.Rejected = rejected
	if rejected > 0 {
		e.logger.Debug("candidates rejected", "source", src.URL, "target", tgt.URL, "rejected", rejected)
	}

	if err := e.store.WriteJSON(path, kept); err != nil {
		return nil, false, fmt.Errorf("store pair %s -> %s: %w", src.URL, tgt.URL, err)
	}
	return kept, false, nil
}

func (e *Engine) report(ev Event) {
	if e.progress != nil {
		e.progress(ev)
	}
}

// Validate keeps the candidates whose anchor occurs verbatim in the source
// content and whose score lies in [0,100] and reaches threshold. LinkFrom
// and LinkTo are set to the pair's URLs. The result is never nil.
func Validate(src, tgt *model.PageContent, raw []model.IntersectionCandidate, threshold float64) ([]model.IntersectionCandidate, int) {
	kept := make([]model.IntersectionCandidate, 0, len(raw))
	rejected := 0
	for _, c := range raw {
		if !c.AnchorPresent(src.Content) || !c.ScoreInRange() || !c.MeetsThreshold(threshold) {
			rejected++
			continue
		}
		c.LinkFrom = src.URL
		c.LinkTo = tgt.URL
		kept = append(kept, c)
	}
	return kept, rejected
}
