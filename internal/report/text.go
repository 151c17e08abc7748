package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// TextWriter outputs the terminal summary of a run: the Markdown report
// when there is one, followed by the list of stage errors.
type TextWriter struct {
	baseWriter

	// verbose adds the run ID, timing and skipped stages.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables the run details header.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary.
func (w *TextWriter) Write(rec *model.RunRecord) (int, error) {
	var sb strings.Builder

	if w.verbose {
		fmt.Fprintf(&sb, "Run:      %s\n", rec.ID)
		fmt.Fprintf(&sb, "URL:      %s\n", rec.URL)
		if d := rec.Duration(); d > 0 {
			fmt.Fprintf(&sb, "Duration: %s\n", d.Round(time.Millisecond))
		}
		if len(rec.SkippedStages) > 0 {
			fmt.Fprintf(&sb, "Skipped:  %s\n", strings.Join(rec.SkippedStages, ", "))
		}
		sb.WriteString("\n")
	}

	if rec.Report != "" {
		sb.WriteString(strings.TrimRight(rec.Report, "\n"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(NoReportMessage)
		sb.WriteString("\n")
	}

	if rec.HasErrors() {
		sb.WriteString("\nErrors:\n")
		for _, msg := range rec.Errors {
			fmt.Fprintf(&sb, "  - %s\n", msg)
		}
	}

	return io.WriteString(w.output, sb.String())
}
