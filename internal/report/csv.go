package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/crosslink/internal/model"
)

// CSVWriter writes one linkFrom,linkTo,linkFromText row per candidate,
// without a header row. Fields containing commas, quotes or newlines are
// quoted.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the candidates of run as CSV.
func (w *CSVWriter) Write(run *model.Run) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)
	for _, c := range candidates(run) {
		if err := out.Write([]string{c.LinkFrom, c.LinkTo, c.LinkFromText}); err != nil {
			return cw.n, err
		}
	}
	out.Flush()
	return cw.n, out.Error()
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
