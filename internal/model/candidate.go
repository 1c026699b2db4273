package model

import (
	"math"
	"slices"
	"strings"
)

// DefaultScoreThreshold is the lowest score a candidate may have to be kept.
const DefaultScoreThreshold = 50

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// IntersectionCandidate is a proposed hyperlink from a page of one site
// to a page of the other site.
type IntersectionCandidate struct {
	// LinkFrom is the source page URL.
	LinkFrom string `json:"linkFrom"`

	// LinkFromText is the anchor text. It must be an exact substring of
	// the source page content.
	LinkFromText string `json:"linkFromText"`

	// LinkTo is the target page URL.
	LinkTo string `json:"linkTo"`

	// LinkToReason explains why the target fits the anchor.
	LinkToReason string `json:"linkToReason"`

	// LinkScore is the relevance score in [0,100].
	LinkScore float64 `json:"linkScore"`
}

// AnchorPresent reports whether the anchor text occurs verbatim
// (byte for byte, case-sensitive) in content. Page content is stored in
// NFC, so anchors in another normalization form do not match.
func (c IntersectionCandidate) AnchorPresent(content string) bool {
	if strings.TrimSpace(c.LinkFromText) == "" {
		return false
	}
	return strings.Contains(content, c.LinkFromText)
}

// ScoreInRange reports whether the score is a number in [MinScore, MaxScore].
func (c IntersectionCandidate) ScoreInRange() bool {
	return !math.IsNaN(c.LinkScore) && c.LinkScore >= MinScore && c.LinkScore <= MaxScore
}

// MeetsThreshold reports whether the score is at or above threshold.
func (c IntersectionCandidate) MeetsThreshold(threshold float64) bool {
	return c.LinkScore >= threshold
}

// Rank returns the candidates ordered by score, highest first.
// The sort is stable: equal scores keep their input order.
// The input slice is left untouched.
func Rank(candidates []IntersectionCandidate) []IntersectionCandidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b IntersectionCandidate) int {
		switch {
		case a.LinkScore > b.LinkScore:
			return -1
		case a.LinkScore < b.LinkScore:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// Key identifies a candidate across runs: the same anchor linking the
// same pair of pages.
func (c IntersectionCandidate) Key() string {
	return c.LinkFrom + "\x00" + c.LinkTo + "\x00" + c.LinkFromText
}

// Diff compares two candidate lists by Key. added holds the candidates of
// cur missing from prev and removed the candidates of prev missing from
// cur, both in their input order.
func Diff(prev, cur []IntersectionCandidate) (added, removed []IntersectionCandidate) {
	inPrev := make(map[string]struct{}, len(prev))
	for _, c := range prev {
		inPrev[c.Key()] = struct{}{}
	}
	inCur := make(map[string]struct{}, len(cur))
	for _, c := range cur {
		inCur[c.Key()] = struct{}{}
	}

	added = make([]IntersectionCandidate, 0)
	for _, c := range cur {
		if _, ok := inPrev[c.Key()]; !ok {
			added = append(added, c)
		}
	}
	removed = make([]IntersectionCandidate, 0)
	for _, c := range prev {
		if _, ok := inCur[c.Key()]; !ok {
			removed = append(removed, c)
		}
	}
	return added, removed
}
