package report

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/seoaudit/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	reportTitle = "SEO Audit Report"
	dateLayout  = "2006-01-02 15:04:05 MST"
)

// Gap notes used in the report and handed to the advisor.
const (
	pageAuditFailedNote  = "Page audit data was not available because the page audit failed."
	pageAuditMissingNote = "Page audit data was not available because the page audit did not run."
	serpSkippedNote      = "Competitor (SERP) data was not available because competitor analysis was skipped: no primary keyword was identified."
	serpFailedNote       = "Competitor (SERP) data was not available because competitor analysis failed."
	serpMissingNote      = "Competitor (SERP) data was not available because competitor analysis did not run."
)

// PageAuditGap explains why the record has no page audit.
// It returns an empty string when the audit is present.
func PageAuditGap(rec *model.RunRecord) string {
	switch {
	case rec.HasPageAudit():
		return ""
	case slices.Contains(rec.PerformedStages, model.StagePageAudit):
		return pageAuditFailedNote
	default:
		return pageAuditMissingNote
	}
}

// SerpAnalysisGap explains why the record has no competitor analysis,
// distinguishing a skipped stage from a failed one. It returns an empty
// string when the analysis is present.
func SerpAnalysisGap(rec *model.RunRecord) string {
	switch {
	case rec.HasSerpAnalysis():
		return ""
	case rec.WasSkipped(model.StageCompetitorAnalysis):
		return serpSkippedNote
	case slices.Contains(rec.PerformedStages, model.StageCompetitorAnalysis):
		return serpFailedNote
	default:
		return serpMissingNote
	}
}

// Compose builds the final Markdown report from the record's stage outputs
// and the advisor's recommendations. Missing data is called out explicitly,
// so the result is never empty.
func Compose(rec *model.RunRecord, advice *model.AdvisorOutput) string {
	md := markdown.NewMarkdown(io.Discard)

	writeHeader(md, rec)
	writeGaps(md, rec)
	writeAdvice(md, advice)
	if rec.HasPageAudit() {
		writeOnPage(md, rec.PageAudit)
	}
	if rec.HasSerpAnalysis() {
		writeCompetitors(md, rec.SerpAnalysis)
	}
	writeFooter(md)

	return md.String()
}

func writeHeader(md *markdown.Markdown, rec *model.RunRecord) {
	md.H1(reportTitle)
	md.PlainText("")

	keyword := rec.PrimaryKeyword()
	if keyword == "" {
		keyword = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + rec.URL + "`"},
			{"Primary Keyword", cell(keyword)},
			{"Audit Date", rec.StartedAt.Format(dateLayout)},
			{"Status", statusText(rec)},
		},
	})
	md.PlainText("")
}

func statusText(rec *model.RunRecord) string {
	switch {
	case !rec.HasPageAudit() && !rec.HasSerpAnalysis():
		return "Degraded (no audit or competitor data)"
	case rec.Degraded():
		return "Degraded (partial data)"
	default:
		return "Complete"
	}
}

func writeGaps(md *markdown.Markdown, rec *model.RunRecord) {
	for _, note := range []string{PageAuditGap(rec), SerpAnalysisGap(rec)} {
		if note == "" {
			continue
		}
		md.Warning(note + " The recommendations below are based only on the data that was available.")
		md.PlainText("")
	}
}

func writeAdvice(md *markdown.Markdown, advice *model.AdvisorOutput) {
	md.H2("Executive Summary")
	md.PlainText("")
	if advice == nil || strings.TrimSpace(advice.ExecutiveSummary) == "" {
		md.PlainText("No summary was produced.")
	} else {
		md.PlainText(strings.TrimSpace(advice.ExecutiveSummary))
	}
	md.PlainText("")

	md.H2("Prioritized Recommendations")
	md.PlainText("")
	if advice == nil || len(advice.Recommendations) == 0 {
		md.PlainText("No recommendations were produced.")
		md.PlainText("")
	} else {
		recs := slices.Clone(advice.Recommendations)
		slices.SortStableFunc(recs, func(a, b model.OptimizationRecommendation) int {
			return model.PriorityRank(a.Priority) - model.PriorityRank(b.Priority)
		})

		rows := make([][]string, len(recs))
		for i, r := range recs {
			rows[i] = []string{
				strings.ToUpper(strings.TrimSpace(r.Priority)),
				cell(r.Area),
				cell(r.Recommendation),
				cell(r.Rationale),
				cell(r.ExpectedImpact),
				titleCase(r.Effort),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Priority", "Area", "Recommendation", "Rationale", "Expected Impact", "Effort"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if advice != nil && len(advice.NextSteps) > 0 {
		md.H2("Next Steps")
		md.PlainText("")
		md.OrderedList(advice.NextSteps...)
		md.PlainText("")
	}
}

func writeOnPage(md *markdown.Markdown, audit *model.PageAuditOutput) {
	md.H2("On-Page Findings")
	md.PlainText("")

	ar := audit.AuditResults
	rows := [][]string{
		{"Title Tag", cell(ar.TitleTag)},
		{"Meta Description", cell(ar.MetaDescription)},
		{"Primary Heading (H1)", cell(ar.PrimaryHeading)},
		{"Word Count", optionalInt(ar.WordCount)},
	}
	if lc := ar.LinkCounts; lc != nil {
		rows = append(rows,
			[]string{"Internal Links", optionalInt(lc.Internal)},
			[]string{"External Links", optionalInt(lc.External)},
			[]string{"Broken Links", optionalInt(lc.Broken)},
		)
	}
	if kw := audit.TargetKeywords; kw != nil {
		rows = append(rows,
			[]string{"Search Intent", titleCase(kw.SearchIntent)},
			[]string{"Secondary Keywords", cell(strings.Join(kw.SecondaryKeywords, ", "))},
		)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Element", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if ar.ContentSummary != "" {
		md.PlainText(ar.ContentSummary)
		md.PlainText("")
	}

	if len(ar.SecondaryHeadings) > 0 {
		outline := make([]string, len(ar.SecondaryHeadings))
		for i, h := range ar.SecondaryHeadings {
			outline[i] = strings.ToUpper(h.Tag) + ": " + h.Text
		}
		writeList(md, "Heading Outline", outline)
	}
	writeList(md, "Technical Findings", ar.TechnicalFindings)
	writeList(md, "Content Opportunities", ar.ContentOpportunities)
	if kw := audit.TargetKeywords; kw != nil {
		writeList(md, "Supporting Topics", kw.SupportingTopics)
	}
}

func writeCompetitors(md *markdown.Markdown, serp *model.SerpAnalysis) {
	md.H2("Competitor Landscape")
	md.PlainText("")
	md.PlainTextf("Top results for `%s`:", serp.PrimaryKeyword)
	md.PlainText("")

	if len(serp.TopResults) > 0 {
		results := slices.Clone(serp.TopResults)
		slices.SortStableFunc(results, func(a, b model.SerpResult) int { return a.Rank - b.Rank })

		rows := make([][]string, len(results))
		for i, r := range results {
			rows[i] = []string{
				strconv.Itoa(r.Rank),
				cell(r.Title),
				titleCase(r.ContentType),
				cell(r.URL),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Title", "Content Type", "URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	writeList(md, "Title Patterns", serp.TitlePatterns)
	writeList(md, "Content Formats", serp.ContentFormats)
	writeList(md, "People Also Ask", serp.PeopleAlsoAsk)
	writeList(md, "Key Themes", serp.KeyThemes)
	writeList(md, "Differentiation Opportunities", serp.DifferentiationOpportunities)
}

func writeList(md *markdown.Markdown, title string, items []string) {
	if len(items) == 0 {
		return
	}
	md.H3(title)
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

func writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [seoaudit](https://github.com/nao1215/seoaudit)*")
}

// cell makes s safe for a single Markdown table cell.
func cell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// titleCase capitalizes free-form labels such as "product page".
// A Caser is stateful, so one is created per call.
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return cases.Title(language.English).String(s)
}
