package report

import (
	"io"

	"github.com/nao1215/seoaudit/internal/model"
)

// NoReportMessage is shown when a run finished without a report.
const NoReportMessage = "No report was generated."

// Writer renders a run record to some destination.
type Writer interface {
	// Write outputs the record and returns the number of bytes written.
	Write(rec *model.RunRecord) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// It is used to print a summary on the terminal while saving a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the record to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(rec *model.RunRecord) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(rec)
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

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
