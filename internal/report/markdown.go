package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/crosslink/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs the run as a Markdown document: run information,
// a score distribution, the candidate table and the reason for every
// candidate.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeCandidates(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("crosslink report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"My sitemap", "`" + run.MySitemap + "`"},
			{"Target sitemap", "`" + run.TargetSitemap + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration.Round(time.Millisecond).String()},
			{"My pages", strconv.Itoa(len(run.MyPages))},
			{"Target pages", strconv.Itoa(len(run.TargetPages))},
			{"Pairs evaluated", strconv.Itoa(run.PairCount())},
			{"Candidates", strconv.Itoa(len(candidates(run)))},
		},
	})
	md.PlainText("")
}

// scoreBand groups candidates for the distribution chart.
type scoreBand struct {
	label string
	min   float64
	count uint64
}

func bands(list []model.IntersectionCandidate) []scoreBand {
	out := []scoreBand{
		{label: "90-100", min: 90},
		{label: "75-89", min: 75},
		{label: "below 75", min: 0},
	}
	for _, c := range list {
		for i := range out {
			if c.LinkScore >= out[i].min {
				out[i].count++
				break
			}
		}
	}
	return out
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.Run) {
	list := candidates(run)
	md.H2("Summary")
	md.PlainText("")

	if len(list) == 0 {
		md.Note("No candidate passed validation. Try a lower threshold or broader path filters.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Score distribution"),
		piechart.WithShowData(true),
	)
	for _, b := range bands(list) {
		if b.count > 0 {
			chart.LabelAndIntValue(b.label, b.count)
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.Tip(fmt.Sprintf("%d link candidates across %d pairs.", len(list), run.PairCount()))
	md.PlainText("")
}

func (w *MarkdownWriter) writeCandidates(md *markdown.Markdown, run *model.Run) {
	list := candidates(run)
	if len(list) == 0 {
		return
	}

	md.H2("Candidates")
	md.PlainText("")

	rows := make([][]string, len(list))
	for i, c := range list {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatScore(c.LinkScore),
			cell(c.LinkFrom, 0),
			cell(c.LinkFromText, 0),
			cell(c.LinkTo, 0),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Score", "From", "Anchor", "To"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Reasons")
	md.PlainText("")
	for i, c := range list {
		reason := strings.TrimSpace(c.LinkToReason)
		if reason == "" {
			reason = "-"
		}
		md.Details(strconv.Itoa(i+1)+". "+c.LinkFromText, reason)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [crosslink](https://github.com/nao1215/crosslink)*")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// cell prepares s for a table cell: newlines become spaces, pipes are
// escaped and, when maxLen > 0, long values are truncated.
func cell(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = truncateString(s, maxLen)
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
