// Package database records crosslink runs in SQLite.
//
// Every successful start appends one row to runs and one row per ranked
// candidate to candidates. The history command reads them back and can
// compare a run against the previous run of the same sitemap pair.
//
// The page and pair cache lives in plain files (see package cache); this
// database only holds finished results.
package database
