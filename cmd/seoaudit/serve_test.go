package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/metrics"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/report"
)

// mapStore is an in-memory runStore.
type mapStore struct {
	runs map[string]*model.RunRecord
	err  error
}

func (m *mapStore) GetRun(_ context.Context, id string) (*model.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.runs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return rec, nil
}

func newTestHandler(t *testing.T, runner auditRunner, store runStore) (*server, http.Handler) {
	t.Helper()
	srv, err := newServer(runner, store, metrics.New(), discardLogger())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, srv.routes()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postAudit(h http.Handler, target string) *httptest.ResponseRecorder {
	form := url.Values{"url": {target}}
	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return serve(h, req)
}

func TestServerForm(t *testing.T) {
	t.Parallel()

	t.Run("index renders the form", func(t *testing.T) {
		t.Parallel()
		_, h := newTestHandler(t, &fakeRunner{}, nil)

		rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, `action="/audit"`) || !strings.Contains(body, `name="url"`) {
			t.Errorf("expected audit form, got %q", body)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("expected html content type, got %q", ct)
		}
	})

	t.Run("invalid url is rejected without running", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{}
		_, h := newTestHandler(t, runner, nil)

		rr := postAudit(h, "www.example.com")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Please enter a valid URL") {
			t.Errorf("expected validation message, got %q", rr.Body.String())
		}
		if len(runner.urls) != 0 {
			t.Errorf("expected no audit, got %v", runner.urls)
		}
	})

	t.Run("valid url runs and redirects to the report", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{}
		srv, h := newTestHandler(t, runner, nil)

		rr := postAudit(h, " https://shop.example/ ")
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rr.Code)
		}
		if len(runner.urls) != 1 || runner.urls[0] != "https://shop.example/" {
			t.Fatalf("expected trimmed url to be audited, got %v", runner.urls)
		}
		location := rr.Header().Get("Location")
		if !strings.HasPrefix(location, "/runs/") {
			t.Fatalf("unexpected redirect %q", location)
		}

		page := serve(h, httptest.NewRequest(http.MethodGet, location, nil))
		if page.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", page.Code)
		}
		if !strings.Contains(page.Body.String(), "<h1>Report for ") {
			t.Errorf("expected rendered markdown, got %q", page.Body.String())
		}

		index := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		if !strings.Contains(index.Body.String(), location) {
			t.Errorf("expected recent run link on index, got %q", index.Body.String())
		}
		if got := len(srv.recent()); got != 1 {
			t.Errorf("expected 1 recent run, got %d", got)
		}
	})
}

func TestServerRunEndpoints(t *testing.T) {
	t.Parallel()

	withReport := model.NewRunRecord("https://a.example")
	_ = withReport.SetReport("# SEO Audit Report\n\n<script>alert(1)</script>\n")

	noReport := model.NewRunRecord("https://b.example")
	noReport.AddError("page_audit: tool failure: scrape https://b.example: timeout")

	store := &mapStore{runs: map[string]*model.RunRecord{
		withReport.ID: withReport,
		noReport.ID:   noReport,
	}}
	_, h := newTestHandler(t, &fakeRunner{}, store)

	t.Run("report page escapes raw html", func(t *testing.T) {
		t.Parallel()
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/"+withReport.ID, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "<script>alert(1)</script>") {
			t.Error("expected raw html in the report to be dropped")
		}
		if !strings.Contains(rr.Body.String(), "report.md") {
			t.Error("expected download link")
		}
	})

	t.Run("report download", func(t *testing.T) {
		t.Parallel()
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/"+withReport.ID+"/report.md", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if rr.Body.String() != withReport.Report {
			t.Errorf("expected report verbatim, got %q", rr.Body.String())
		}
		if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, reportFileName) {
			t.Errorf("expected attachment named %s, got %q", reportFileName, cd)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
			t.Errorf("expected markdown content type, got %q", ct)
		}
	})

	t.Run("run without report shows errors", func(t *testing.T) {
		t.Parallel()
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/"+noReport.ID, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, report.NoReportMessage) || !strings.Contains(body, "scrape https://b.example: timeout") {
			t.Errorf("expected no-report notice and error, got %q", body)
		}
		if strings.Contains(body, "report.md") {
			t.Error("expected no download link without a report")
		}

		dl := serve(h, httptest.NewRequest(http.MethodGet, "/runs/"+noReport.ID+"/report.md", nil))
		if dl.Code != http.StatusNotFound {
			t.Errorf("expected 404 for missing report, got %d", dl.Code)
		}
	})

	t.Run("record json", func(t *testing.T) {
		t.Parallel()
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/"+noReport.ID+"/record.json", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var got model.RunRecord
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("expected valid JSON: %v", err)
		}
		if got.ID != noReport.ID || len(got.Errors) != 1 {
			t.Errorf("unexpected record: %+v", got)
		}
	})

	t.Run("unknown run is 404", func(t *testing.T) {
		t.Parallel()
		rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestServerStoreFailure(t *testing.T) {
	t.Parallel()

	_, h := newTestHandler(t, &fakeRunner{}, &mapStore{err: errors.New("disk I/O error")})
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/runs/some-id", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestServerOperationalEndpoints(t *testing.T) {
	t.Parallel()

	_, h := newTestHandler(t, &fakeRunner{}, nil)

	health := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK || strings.TrimSpace(health.Body.String()) != "ok" {
		t.Errorf("unexpected healthz response: %d %q", health.Code, health.Body.String())
	}

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `seoaudit_http_requests_total{code="200",method="GET",path="/healthz"} 1`) {
		t.Errorf("expected healthz request to be counted, got %q", rr.Body.String())
	}
}

func TestServerRememberEvictsOldest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store runStore
		limit int
	}{
		{"without history", nil, maxRememberedRuns},
		{"with history", &mapStore{runs: map[string]*model.RunRecord{}}, recentRunsLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newTestHandler(t, &fakeRunner{}, tt.store)

			var first, last *model.RunRecord
			for i := range tt.limit + 5 {
				rec := model.NewRunRecord("https://example.com/")
				if i == 0 {
					first = rec
				}
				last = rec
				srv.remember(rec)
			}

			srv.mu.RLock()
			defer srv.mu.RUnlock()
			if len(srv.runs) != tt.limit || len(srv.order) != tt.limit {
				t.Fatalf("expected %d remembered runs, got %d (order %d)", tt.limit, len(srv.runs), len(srv.order))
			}
			if _, ok := srv.runs[first.ID]; ok {
				t.Error("expected the oldest run to be evicted")
			}
			if _, ok := srv.runs[last.ID]; !ok {
				t.Error("expected the newest run to be kept")
			}
		})
	}
}
