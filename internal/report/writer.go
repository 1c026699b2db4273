package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/crosslink/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the ranked candidates of run.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// FileTarget is one report file and the writer that renders it.
type FileTarget struct {
	Path      string
	NewWriter func(io.Writer) Writer
}

// WriteFile creates path, including missing parent directories, and writes
// run to it with the writer built by newWriter.
func WriteFile(path string, run *model.Run, newWriter func(io.Writer) Writer) error {
	return WriteFiles(run, FileTarget{Path: path, NewWriter: newWriter})
}

// WriteFiles creates every target file and writes run to all of them
// through one MultiWriter. Nothing is rendered when a file cannot be
// created.
func WriteFiles(run *model.Run, targets ...FileTarget) (err error) {
	files := make([]*os.File, 0, len(targets))
	defer func() {
		for _, f := range files {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close report file: %w", closeErr)
			}
		}
	}()

	writers := make([]Writer, 0, len(targets))
	for _, target := range targets {
		f, err := createFile(target.Path)
		if err != nil {
			return err
		}
		files = append(files, f)
		writers = append(writers, target.NewWriter(f))
	}

	if _, err := NewMultiWriter(writers...).Write(run); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}
	return f, nil
}

// candidates returns the list a writer should output: the ranked list
// when the run has been ranked, otherwise the discovery-ordered list.
func candidates(run *model.Run) []model.IntersectionCandidate {
	if run == nil {
		return nil
	}
	if run.Ranked != nil {
		return run.Ranked
	}
	return run.Candidates
}
