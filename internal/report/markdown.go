package report

import (
	"io"

	"github.com/nao1215/markdown"
	"github.com/nao1215/seoaudit/internal/model"
)

// MarkdownWriter outputs the run's Markdown report. This is the file
// offered for download as seo_audit_report.md.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report. A run without a report produces a short
// document listing the stage errors instead.
func (w *MarkdownWriter) Write(rec *model.RunRecord) (int, error) {
	if rec.Report != "" {
		return io.WriteString(w.output, rec.Report)
	}

	md := markdown.NewMarkdown(w.output)
	md.H1(reportTitle)
	md.PlainText("")
	md.PlainText(NoReportMessage)
	md.PlainText("")
	if rec.HasErrors() {
		md.Cautionf("The run for %s recorded %d error(s).", rec.URL, len(rec.Errors))
		md.PlainText("")
		md.BulletList(rec.Errors...)
	}
	return len(md.String()), md.Build()
}
