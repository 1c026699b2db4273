// Package intersect evaluates every (source page, target page) pair and
// collects the link candidates that survive validation.
//
// Pairs are evaluated one at a time, sources in the outer loop. Each pair is
// cached under md5(source URL + ":" + target URL). On a miss the classifier
// proposes candidates, which are validated in a single pass:
//
//   - the anchor text must occur verbatim, case-sensitively, in the source
//     content
//   - the score must reach the threshold (inclusive)
//
// The survivors, possibly none, are stored, so a pair without candidates is
// not asked about again.
package intersect
