package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/crosslink/internal/model"
	"github.com/nao1215/markdown"
)

// TableWriter prints the ranked candidates as a table for the terminal.
type TableWriter struct {
	baseWriter

	// limit caps the number of rows. 0 means no limit.
	limit int
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithLimit caps the number of rows printed.
func WithLimit(limit int) TableWriterOption {
	return func(w *TableWriter) {
		w.limit = limit
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the candidate table followed by a one-line total.
func (w *TableWriter) Write(run *model.Run) (int, error) {
	list := candidates(run)
	if len(list) == 0 {
		return fmt.Fprintln(w.output, "No link candidates found.")
	}

	shown := list
	if w.limit > 0 && len(shown) > w.limit {
		shown = shown[:w.limit]
	}

	rows := make([][]string, len(shown))
	for i, c := range shown {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatScore(c.LinkScore),
			cell(c.LinkFrom, 0),
			cell(c.LinkFromText, 40),
			cell(c.LinkTo, 0),
		}
	}

	md := markdown.NewMarkdown(w.output)
	md.Table(markdown.TableSet{
		Header: []string{"#", "Score", "From", "Anchor", "To"},
		Rows:   rows,
	})
	md.PlainText("")
	if len(shown) < len(list) {
		md.PlainTextf("%d of %d candidates shown", len(shown), len(list))
	} else {
		md.PlainTextf("%d candidates", len(list))
	}
	return len(md.String()), md.Build()
}
