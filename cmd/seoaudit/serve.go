package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nao1215/seoaudit/internal/audit"
	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/metrics"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/report"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var pageTemplates embed.FS

const (
	// reportFileName is the download name of the Markdown report.
	reportFileName = "seo_audit_report.md"

	// recentRunsLimit bounds the runs listed on the form page. It is also
	// how many runs stay in memory when a history database holds the rest.
	recentRunsLimit = 10

	// maxRememberedRuns bounds the in-memory runs without a history database.
	maxRememberedRuns = 100

	shutdownTimeout = 10 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a web form for running audits",
		Long: `Serve starts an HTTP server with a single-page form. Submitting a URL runs
the audit and shows the report, which can be downloaded as Markdown.

Endpoints:
  GET  /                      audit form and recent runs
  POST /audit                 run an audit (form field: url)
  GET  /runs/{id}             report page
  GET  /runs/{id}/report.md   report download
  GET  /runs/{id}/record.json full run record
  GET  /healthz               liveness probe
  GET  /metrics               Prometheus metrics

Examples:
  seoaudit serve
  seoaudit serve --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Listen address of the web form")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoaudit in current or home directory)")
	addProviderFlags(cmd)
	addHistoryFlag(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}
	if err := applyProviderFlags(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddr, err = cmd.Flags().GetString("listen"); err != nil {
			return err
		}
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

	var store runStore
	if stack.History != nil {
		store = stack.History
	}
	srv, err := newServer(stack.Service, store, stack.Metrics, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", cfg.ListenAddr)
	return srv.listenAndServe(ctx, cfg.ListenAddr)
}

// auditRunner runs a single audit.
type auditRunner interface {
	Run(ctx context.Context, url string) *model.RunRecord
}

// runStore looks up persisted runs.
type runStore interface {
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
}

// server is the web form. The newest runs made by this process are kept in
// memory; older runs are read from the history database when one is
// configured and are otherwise forgotten.
type server struct {
	runner  auditRunner
	store   runStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	pages   *template.Template
	md      goldmark.Markdown

	mu    sync.RWMutex
	runs  map[string]*model.RunRecord
	order []string // run IDs, oldest first
}

func newServer(runner auditRunner, store runStore, m *metrics.Metrics, logger *slog.Logger) (*server, error) {
	pages, err := template.ParseFS(pageTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &server{
		runner:  runner,
		store:   store,
		metrics: m,
		logger:  logger,
		pages:   pages,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		runs:    make(map[string]*model.RunRecord),
	}, nil
}

// routes builds the router. It registers HTTP metrics on the server's
// registry, so it must be called once per server.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.NewMiddleware(s.metrics.Registry()).Handler)

	r.Get("/", s.handleIndex)
	r.Post("/audit", s.handleAudit)
	r.Get("/runs/{id}", s.handleRun)
	r.Get("/runs/{id}/report.md", s.handleReport)
	r.Get("/runs/{id}/record.json", s.handleRecord)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

func (s *server) listenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web form listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

type indexPage struct {
	URL    string
	Error  string
	Recent []*model.RunRecord
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index", indexPage{Recent: s.recent()})
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	url := strings.TrimSpace(r.PostFormValue("url"))
	if err := audit.ValidateURL(url); err != nil {
		s.render(w, http.StatusBadRequest, "index", indexPage{
			URL:    url,
			Error:  "Please enter a valid URL starting with http:// or https://",
			Recent: s.recent(),
		})
		return
	}

	rec := s.runner.Run(r.Context(), url)
	s.remember(rec)
	http.Redirect(w, r, "/runs/"+rec.ID, http.StatusSeeOther)
}

type runPage struct {
	Record     *model.RunRecord
	HasReport  bool
	ReportHTML template.HTML
	NoReport   string
	Duration   time.Duration
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	page := runPage{
		Record:    rec,
		HasReport: rec.Report != "",
		NoReport:  report.NoReportMessage,
		Duration:  rec.Duration().Round(time.Second),
	}
	if page.HasReport {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(rec.Report), &buf); err != nil {
			s.logger.Warn("failed to render report", "run", rec.ID, "error", err)
			buf.Reset()
			buf.WriteString("<pre>" + template.HTMLEscapeString(rec.Report) + "</pre>")
		}
		page.ReportHTML = template.HTML(buf.String()) //nolint:gosec // goldmark drops raw HTML unless WithUnsafe is set
	}
	s.render(w, http.StatusOK, "run", page)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Report == "" {
		http.Error(w, report.NoReportMessage, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reportFileName+`"`)
	_, _ = w.Write([]byte(rec.Report))
}

func (s *server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := report.NewJSONWriter(w, report.WithPrettyPrint()).Write(rec); err != nil {
		s.logger.Warn("failed to write run record", "run", rec.ID, "error", err)
	}
}

// lookup resolves the {id} route parameter and writes a 404 when the run
// is unknown.
func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*model.RunRecord, bool) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	rec, ok := s.runs[id]
	s.mu.RUnlock()
	if ok {
		return rec, true
	}

	if s.store != nil {
		rec, err := s.store.GetRun(r.Context(), id)
		if err == nil {
			return rec, true
		}
		if !errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("failed to read run history", "run", id, "error", err)
			http.Error(w, "failed to read run history", http.StatusInternalServerError)
			return nil, false
		}
	}

	http.NotFound(w, r)
	return nil, false
}

// remember keeps rec in memory, evicting the oldest runs beyond the limit.
func (s *server) remember(rec *model.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.runs[rec.ID] = rec

	limit := maxRememberedRuns
	if s.store != nil {
		limit = recentRunsLimit
	}
	for len(s.order) > limit {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

// recent returns the newest runs made by this process.
func (s *server) recent() []*model.RunRecord {
	s.mu.RLock()
	runs := make([]*model.RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		runs = append(runs, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(runs, func(a, b *model.RunRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if len(runs) > recentRunsLimit {
		runs = runs[:recentRunsLimit]
	}
	return runs
}

func (s *server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
