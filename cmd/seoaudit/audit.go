package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nao1215/seoaudit/internal/audit"
	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/report"
	"github.com/spf13/cobra"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url...]",
		Short: "Audit one or more web pages and print an SEO report",
		Long: `Audit runs the three-stage SEO audit for each URL:

- Page audit: title, meta description, headings, links, keywords and search intent
- Competitor analysis: top search results for the page's primary keyword
- Report synthesis: prioritized recommendations and next steps

A failed stage does not stop the run. The report notes what is missing and
every failure is listed after it. When no URL is given, ` + config.DefaultTargetURL + `
is audited.

Examples:
  # Audit a single page
  seoaudit audit https://shop.example.com/running-shoes

  # Audit several pages, two at a time
  seoaudit audit --batch 2 https://a.example.com https://b.example.com

  # Write the full run record as JSON
  seoaudit audit --json -o out/run.json https://shop.example.com

  # Use Groq, the direct HTTP scraper and Brave search
  seoaudit audit --llm groq --scraper http --search brave https://shop.example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each scrape and search request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent audits when several URLs are given")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoaudit in current or home directory)")

	addProviderFlags(cmd)

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the full run record as JSON")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.Flags().String("snapshot", config.DefaultSnapshotPath,
		"Path of the run snapshot JSON file (empty to disable)")
	addHistoryFlag(cmd)

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args, os.Getenv)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	stack, err := audit.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Warn("failed to close history database", "error", err)
		}
	}()

	records, err := runAudits(ctx, stack.Service, cfg, logger)
	if err != nil {
		return err
	}
	return outputRecords(cfg, records, cmd.OutOrStdout())
}

// buildConfig creates a Config for the audit command. Flags only override
// the file and environment when they were set explicitly.
func buildConfig(cmd *cobra.Command, args []string, getenv func(string) string) (*config.Config, error) {
	cfg, err := loadConfig(cmd, getenv)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("snapshot") {
		if cfg.SnapshotPath, err = flags.GetString("snapshot"); err != nil {
			return nil, err
		}
	}

	if err := applyProviderFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets = make([]string, 0, len(args))
	for _, a := range args {
		cfg.Targets = append(cfg.Targets, strings.TrimSpace(a))
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{config.DefaultTargetURL}
	}

	return cfg, nil
}

// runner is the part of audit.Service used by the CLI.
type runner interface {
	Run(ctx context.Context, url string) *model.RunRecord
	RunBatch(ctx context.Context, urls []string, concurrency int, callback func(rec *model.RunRecord, index int)) error
}

// runAudits audits every target. A single target runs directly; several
// run through the batch processor and come back in input order.
func runAudits(ctx context.Context, svc runner, cfg *config.Config, logger *slog.Logger) ([]*model.RunRecord, error) {
	if len(cfg.Targets) == 1 {
		logger.Info("starting audit", "url", cfg.Targets[0])
		return []*model.RunRecord{svc.Run(ctx, cfg.Targets[0])}, nil
	}

	logger.Info("starting batch audit", "urls", len(cfg.Targets), "concurrency", cfg.BatchSize)
	records := make([]*model.RunRecord, len(cfg.Targets))
	var (
		mu   sync.Mutex
		done int
	)
	err := svc.RunBatch(ctx, cfg.Targets, cfg.BatchSize, func(rec *model.RunRecord, index int) {
		mu.Lock()
		defer mu.Unlock()
		records[index] = rec
		done++
		logger.Info("audit finished",
			"url", rec.URL,
			"progress", fmt.Sprintf("%d/%d", done, len(records)),
			"errors", len(rec.Errors),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("batch audit failed: %w", err)
	}
	return records, nil
}

// outputRecords writes every record to the configured destination.
// Without --output records go to stdout; with several records the text
// reports are separated by a rule.
func outputRecords(cfg *config.Config, records []*model.RunRecord, stdout io.Writer) error {
	out := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	w := newRecordWriter(cfg, out)
	for i, rec := range records {
		if i > 0 && !cfg.JSONReport {
			if _, err := fmt.Fprint(out, "\n---\n\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", rec.URL, err)
		}
	}

	if cfg.ReportFile != "" {
		fmt.Fprintf(stdout, "Report written to: %s\n", cfg.ReportFile)
	}
	return nil
}

// newRecordWriter picks the output format: JSON with --json, the plain
// Markdown report for files, and the annotated text view for the terminal.
func newRecordWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.ReportFile != "":
		return report.NewMarkdownWriter(out)
	default:
		return report.NewTextWriter(out, report.WithVerbose(cfg.Verbose))
	}
}
