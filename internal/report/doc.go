// Package report writes the ranked candidates of a run.
//
// This package contains writers for different output formats:
//   - CSVWriter: the linkFrom,linkTo,linkFromText file consumed by editors
//   - TableWriter: the operator table printed after a run
//   - MarkdownWriter: a shareable report with reasons and a score summary
//   - JSONWriter: the full run for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
