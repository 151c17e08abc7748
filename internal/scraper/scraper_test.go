package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

type fakeScraper struct {
	name  string
	page  *model.PageContent
	err   error
	calls int
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(_ context.Context, _ string) (*model.PageContent, error) {
	f.calls++
	return f.page, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChain_Scrape(t *testing.T) {
	t.Parallel()

	t.Run("falls back to the next scraper", func(t *testing.T) {
		t.Parallel()

		first := &fakeScraper{name: "first", err: errors.New("quota exceeded")}
		second := &fakeScraper{name: "second", page: &model.PageContent{Source: "second"}}
		chain := NewChain([]Scraper{first, second}, WithChainLogger(discardLogger()))

		page, err := chain.Scrape(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Source != "second" {
			t.Errorf("expected page from second scraper, got %q", page.Source)
		}
		if first.calls != 1 || second.calls != 1 {
			t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
		}
	})

	t.Run("stops at the first success", func(t *testing.T) {
		t.Parallel()

		first := &fakeScraper{name: "first", page: &model.PageContent{Source: "first"}}
		second := &fakeScraper{name: "second"}
		chain := NewChain([]Scraper{first, second})

		if _, err := chain.Scrape(context.Background(), "https://example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.calls != 0 {
			t.Errorf("second scraper should not be called, got %d calls", second.calls)
		}
	})

	t.Run("joins all errors", func(t *testing.T) {
		t.Parallel()

		errA := errors.New("a failed")
		errB := errors.New("b failed")
		chain := NewChain([]Scraper{
			&fakeScraper{name: "a", err: errA},
			&fakeScraper{name: "b", err: errB},
		}, WithChainLogger(discardLogger()))

		_, err := chain.Scrape(context.Background(), "https://example.com")
		if !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Errorf("expected both errors, got %v", err)
		}
	})

	t.Run("empty chain", func(t *testing.T) {
		t.Parallel()

		if _, err := NewChain(nil).Scrape(context.Background(), "https://example.com"); !errors.Is(err, ErrNoScrapers) {
			t.Errorf("expected ErrNoScrapers, got %v", err)
		}
	})

	t.Run("name lists members", func(t *testing.T) {
		t.Parallel()

		chain := NewChain([]Scraper{&fakeScraper{name: "a"}, &fakeScraper{name: "b"}})
		if chain.Name() != "chain(a,b)" {
			t.Errorf("Name = %q", chain.Name())
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		provider  string
		key       string
		wantName  string
		wantError error
	}{
		{name: "auto without key uses http", provider: config.ProviderAuto, wantName: "http"},
		{name: "auto with key chains", provider: config.ProviderAuto, key: "fc-x", wantName: "chain(firecrawl,http)"},
		{name: "forced http ignores key", provider: config.ScraperHTTP, key: "fc-x", wantName: "http"},
		{name: "forced firecrawl", provider: config.ScraperFirecrawl, key: "fc-x", wantName: "firecrawl"},
		{name: "forced firecrawl without key", provider: config.ScraperFirecrawl, wantError: ErrNoFirecrawlKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.ScraperProvider = tt.provider
			cfg.FirecrawlAPIKey = tt.key

			s, err := New(cfg, discardLogger())
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("expected %v, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}
