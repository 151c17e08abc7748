package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed for a URL.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List past audits stored in the history database",
		Long: `History reads the local run history.

Without arguments it lists every audited URL. With a URL it lists the runs
for that URL, newest first. Use --show to print a stored run.

Examples:
  # List audited URLs
  seoaudit history

  # List runs for a URL
  seoaudit history https://shop.example.com

  # Print a stored report
  seoaudit history --show 3f0c9a0e-2f7b-4a57-9d0f-3c1e0f3b2a11

  # Print the stored run record as JSON
  seoaudit history --show 3f0c9a0e-2f7b-4a57-9d0f-3c1e0f3b2a11 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("show", "",
		"Print the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().BoolP("json", "j", false,
		"With --show, print the full run record as JSON")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoaudit in current or home directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}

	showID, err := cmd.Flags().GetString("show")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		if _, statErr := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); os.IsNotExist(statErr) {
			fmt.Fprintln(out, "No audit history found.")
			fmt.Fprintln(out, "\nUse 'seoaudit audit <url>' to audit a page.")
			return nil
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case showID != "":
		return showRun(ctx, db, showID, jsonOutput, out)
	case len(args) == 1:
		return listRunHistory(ctx, db, strings.TrimSpace(args[0]), limit, out)
	default:
		return listAuditedURLs(ctx, db, out)
	}
}

// listAuditedURLs lists every URL with at least one stored run.
func listAuditedURLs(ctx context.Context, db *database.RunDB, out io.Writer) error {
	urls, err := db.ListAuditedURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list audited URLs: %w", err)
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No audited URLs found in the database.")
		fmt.Fprintln(out, "\nUse 'seoaudit audit <url>' to audit a page.")
		return nil
	}

	fmt.Fprintf(out, "Audited URLs (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'seoaudit history <url>' to see the runs for a URL.")
	return nil
}

// listRunHistory lists the runs stored for url, newest first.
func listRunHistory(ctx context.Context, db *database.RunDB, url string, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, url, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", url)
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", url, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %-6s  %s\n", "ID", "Date", "Status", "Errors", "Keyword")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))
	for _, run := range runs {
		status := "complete"
		if run.Degraded {
			status = "degraded"
		}
		keyword := run.PrimaryKeyword
		if keyword == "" {
			keyword = "-"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %-6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			run.ErrorCount,
			keyword,
		)
	}
	fmt.Fprintln(out, "\nUse 'seoaudit history --show <id>' to print a stored report.")
	return nil
}

// showRun prints one stored run as a text report or JSON record.
func showRun(ctx context.Context, db *database.RunDB, id string, jsonOutput bool, out io.Writer) error {
	rec, err := db.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("run %s not found", id)
		}
		return fmt.Errorf("failed to read run: %w", err)
	}

	var w report.Writer = report.NewTextWriter(out, report.WithVerbose(true))
	if jsonOutput {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	}
	_, err = w.Write(rec)
	return err
}
