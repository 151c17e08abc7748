package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/llm"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/pipeline"
)

type funcStep struct {
	name string
	fn   func(ctx context.Context, rec *model.RunRecord) error
}

func (s funcStep) Name() string { return s.name }

func (s funcStep) Do(ctx context.Context, rec *model.RunRecord) error { return s.fn(ctx, rec) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// reportingPipeline stores a report, standing in for the real stages.
func reportingPipeline() *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(quietLogger()))
	p.AddStep(funcStep{name: model.StageReportSynthesis, fn: func(_ context.Context, rec *model.RunRecord) error {
		return rec.SetReport("# SEO Audit Report\n\n" + rec.URL)
	}})
	return p
}

type memoryHistory struct {
	mu   sync.Mutex
	runs []*model.RunRecord
	err  error
}

func (h *memoryHistory) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, rec)
	return h.err
}

func (h *memoryHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

type countingObserver struct {
	mu sync.Mutex
	n  int
}

func (o *countingObserver) RunFinished(*model.RunRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.n++
}

func TestServiceRun(t *testing.T) {
	t.Parallel()

	t.Run("returns the completed record and persists it", func(t *testing.T) {
		t.Parallel()

		snapshot := filepath.Join(t.TempDir(), "memory", "state.json")
		history := &memoryHistory{}
		obs := &countingObserver{}
		svc := NewService(reportingPipeline,
			WithSnapshotPath(snapshot),
			WithHistory(history),
			WithRunObserver(obs),
			WithLogger(quietLogger()),
		)

		rec := svc.Run(context.Background(), "https://example.com")
		if rec == nil {
			t.Fatal("expected a record")
		}
		if !strings.Contains(rec.Report, "https://example.com") {
			t.Errorf("unexpected report %q", rec.Report)
		}
		if rec.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be stamped")
		}

		loaded, err := LoadSnapshot(snapshot)
		if err != nil {
			t.Fatalf("LoadSnapshot: %v", err)
		}
		if loaded.ID != rec.ID || loaded.Report != rec.Report {
			t.Errorf("snapshot does not match record: %+v", loaded)
		}
		if history.count() != 1 {
			t.Errorf("expected 1 history entry, got %d", history.count())
		}
		if obs.n != 1 {
			t.Errorf("expected observer to be called once, got %d", obs.n)
		}
	})

	t.Run("snapshot failure is not fatal", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		svc := NewService(reportingPipeline,
			WithSnapshotPath(filepath.Join(blocker, "state.json")),
			WithLogger(quietLogger()),
		)

		rec := svc.Run(context.Background(), "https://example.com")
		if rec.Report == "" {
			t.Error("expected the report to be delivered")
		}
		if len(rec.Errors) != 0 {
			t.Errorf("persistence failures must not be recorded as stage errors: %q", rec.Errors)
		}
	})

	t.Run("history failure is not fatal", func(t *testing.T) {
		t.Parallel()

		svc := NewService(reportingPipeline,
			WithSnapshotPath(""),
			WithHistory(&memoryHistory{err: errors.New("database is locked")}),
			WithLogger(quietLogger()),
		)
		if rec := svc.Run(context.Background(), "https://example.com"); rec.Report == "" {
			t.Error("expected the report to be delivered")
		}
	})

	t.Run("cancelled run is still recorded", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		history := &memoryHistory{}
		svc := NewService(reportingPipeline, WithSnapshotPath(""), WithHistory(history), WithLogger(quietLogger()))

		rec := svc.Run(ctx, "https://example.com")
		if len(rec.Errors) != 1 || !strings.HasPrefix(rec.Errors[0], "run cancelled") {
			t.Errorf("unexpected errors: %q", rec.Errors)
		}
		if history.count() != 1 {
			t.Error("expected the cancelled run to be saved")
		}
	})
}

func TestServiceRunInto(t *testing.T) {
	t.Parallel()

	svc := NewService(reportingPipeline, WithSnapshotPath(""), WithLogger(quietLogger()))
	initial := model.NewRunRecord("https://example.com/page")

	rec := svc.RunInto(context.Background(), initial)
	if rec != initial {
		t.Error("expected the caller's record to be extended in place")
	}
	if rec.Report == "" {
		t.Error("expected a report")
	}
}

func TestServiceRunBatch(t *testing.T) {
	t.Parallel()

	history := &memoryHistory{}
	svc := NewService(reportingPipeline,
		WithSnapshotPath(filepath.Join(t.TempDir(), "state.json")),
		WithHistory(history),
		WithLogger(quietLogger()),
	)

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	var mu sync.Mutex
	got := make(map[int]string)
	err := svc.RunBatch(context.Background(), urls, 2, func(rec *model.RunRecord, i int) {
		mu.Lock()
		defer mu.Unlock()
		got[i] = rec.URL
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for i, u := range urls {
		if got[i] != u {
			t.Errorf("callback %d = %q, want %q", i, got[i], u)
		}
	}
	if history.count() != len(urls) {
		t.Errorf("expected %d history entries, got %d", len(urls), history.count())
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	if err := ValidateURL("https://www.example.com"); err != nil {
		t.Errorf("expected valid URL, got %v", err)
	}
	if err := ValidateURL("example.com"); !errors.Is(err, config.ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.json")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte("{"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadSnapshot(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("overwrites previous snapshot", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "state.json")
		first := model.NewRunRecord("https://a.example")
		second := model.NewRunRecord("https://b.example")
		if err := SaveSnapshot(path, first); err != nil {
			t.Fatal(err)
		}
		if err := SaveSnapshot(path, second); err != nil {
			t.Fatal(err)
		}
		got, err := LoadSnapshot(path)
		if err != nil {
			t.Fatal(err)
		}
		if got.URL != "https://b.example" {
			t.Errorf("expected latest snapshot, got %q", got.URL)
		}
		entries, _ := os.ReadDir(filepath.Dir(path))
		if len(entries) != 1 {
			t.Errorf("expected no leftover temp files, got %d entries", len(entries))
		}
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("fails without a language model key", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SaveHistory = false
		if _, err := Build(cfg, quietLogger()); !errors.Is(err, llm.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("assembles providers and history", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.GroqAPIKey = "gsk_test"
		cfg.DBDir = t.TempDir()
		cfg.SnapshotPath = filepath.Join(t.TempDir(), "state.json")

		stack, err := Build(cfg, quietLogger())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		defer stack.Close()

		if !strings.HasPrefix(stack.LLM.Name(), "groq/") {
			t.Errorf("expected groq client, got %q", stack.LLM.Name())
		}
		if stack.Scraper.Name() != "http" {
			t.Errorf("expected http scraper without a Firecrawl key, got %q", stack.Scraper.Name())
		}
		if stack.History == nil || stack.Service == nil || stack.Metrics == nil {
			t.Error("expected history, service and metrics")
		}
	})
}
