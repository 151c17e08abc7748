package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRecord(url, keyword string, started time.Time) *model.RunRecord {
	rec := model.NewRunRecord(url)
	rec.StartedAt = started
	rec.FinishedAt = started.Add(5 * time.Second)
	if keyword != "" {
		_ = rec.SetPageAudit(&model.PageAuditOutput{
			AuditResults:   &model.AuditResults{TitleTag: "t", MetaDescription: "m", PrimaryHeading: "h", ContentSummary: "s", LinkCounts: &model.LinkCounts{}},
			TargetKeywords: &model.TargetKeywords{PrimaryKeyword: keyword, SearchIntent: "informational"},
		})
	}
	return rec
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		rec := newRecord("https://example.com", "kw", time.Now())
		if err := db.SaveRun(context.Background(), rec); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
		if _, err := db.GetRun(context.Background(), rec.ID); err != nil {
			t.Errorf("expected stored run after reopen, got %v", err)
		}
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	rec := newRecord("https://example.com/shoes", "running shoes", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	rec.AddError("competitor_analysis: tool failure: search failed")
	_ = rec.SetReport("# SEO Audit Report")

	if err := db.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := db.GetRun(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.URL != rec.URL || got.PrimaryKeyword() != "running shoes" || got.Report != rec.Report {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Errors) != 1 {
		t.Errorf("expected 1 error, got %q", got.Errors)
	}

	t.Run("saving again updates the run", func(t *testing.T) {
		rec.AddError("second")
		if err := db.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		runs, err := db.ListRuns(ctx, rec.URL, 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].ErrorCount != 2 {
			t.Errorf("expected a single updated run, got %+v", runs)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := db.GetRun(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLatestRunAndListing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	older := newRecord("https://a.example", "old keyword", base)
	newer := newRecord("https://a.example", "new keyword", base.Add(time.Hour))
	other := newRecord("https://b.example", "", base.Add(30*time.Minute))
	for _, rec := range []*model.RunRecord{older, newer, other} {
		if err := db.SaveRun(ctx, rec); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	latest, err := db.LatestRun(ctx, "https://a.example")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != newer.ID {
		t.Errorf("expected newest run %s, got %s", newer.ID, latest.ID)
	}
	if _, err := db.LatestRun(ctx, "https://never.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	all, err := db.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 || all[0].ID != newer.ID || all[2].ID != older.ID {
		t.Fatalf("unexpected ordering: %+v", all)
	}
	if !all[1].Degraded || all[1].PrimaryKeyword != "" {
		t.Errorf("expected run without audit to be degraded: %+v", all[1])
	}
	if !all[0].StartedAt.Equal(newer.StartedAt) || !all[0].FinishedAt.Equal(newer.FinishedAt) {
		t.Errorf("timestamps not preserved: %+v", all[0])
	}

	limited, err := db.ListRuns(ctx, "https://a.example", 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 1 || limited[0].PrimaryKeyword != "new keyword" {
		t.Errorf("unexpected limited listing: %+v", limited)
	}

	urls, err := db.ListAuditedURLs(ctx)
	if err != nil {
		t.Fatalf("ListAuditedURLs: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{"2024-03-01 09:00:00", false},
		{"2024-03-01T09:00:00Z", false},
		{"2024-03-01T09:00:00.123456789Z", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
		}
	}
}
