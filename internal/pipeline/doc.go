// Package pipeline runs the stages of a crosslink run in sequence.
//
// A run resolves both sitemaps, extracts every page, evaluates every page
// pair and ranks the surviving candidates. Each stage is a Step that reads
// what earlier steps stored in the shared *model.Run and adds its own
// results. The pipeline stops at the first failing step and records the
// error in the run.
package pipeline
