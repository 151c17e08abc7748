// Package report assembles the final SEO report and writes run records.
//
// Compose turns a run record and the advisor's recommendations into the
// Markdown report stored in RunRecord.Report. It is built with the
// nao1215/markdown library and always produces a non-empty document:
// when upstream data is missing the report says so instead of omitting it.
//
// Writers render a finished run record for output:
//   - MarkdownWriter: the Markdown report itself
//   - JSONWriter: the complete run record as JSON
//   - TextWriter: a terminal summary with the report and any stage errors
package report
