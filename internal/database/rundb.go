package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/seoaudit/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "seoaudit.db"

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("run not found")

// RunDB stores audit run records.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so the web form can read
	// history while a run is being saved.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB inside dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL DEFAULT 0,
		primary_keyword TEXT NOT NULL DEFAULT '',
		degraded INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		record_json TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is the history listing entry for one run.
type RunSummary struct {
	ID             string
	URL            string
	StartedAt      time.Time
	FinishedAt     time.Time
	PrimaryKeyword string
	Degraded       bool
	ErrorCount     int
	SavedAt        time.Time
}

// SaveRun inserts the record, replacing an earlier save of the same run.
func (r *RunDB) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	var finished int64
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt.UnixNano()
	}

	query := `
	INSERT INTO runs (id, url, started_at, finished_at, primary_keyword, degraded, error_count, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		primary_keyword = excluded.primary_keyword,
		degraded = excluded.degraded,
		error_count = excluded.error_count,
		record_json = excluded.record_json,
		saved_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.URL,
		rec.StartedAt.UnixNano(),
		finished,
		rec.PrimaryKeyword(),
		rec.Degraded(),
		len(rec.Errors),
		string(recordJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (r *RunDB) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	return r.queryRecord(ctx, `SELECT record_json FROM runs WHERE id = ?`, id)
}

// LatestRun retrieves the most recent run for url.
func (r *RunDB) LatestRun(ctx context.Context, url string) (*model.RunRecord, error) {
	return r.queryRecord(ctx, `
	SELECT record_json FROM runs
	WHERE url = ?
	ORDER BY started_at DESC
	LIMIT 1
	`, url)
}

func (r *RunDB) queryRecord(ctx context.Context, query string, arg any) (*model.RunRecord, error) {
	var recordJSON string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var rec model.RunRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}
	return &rec, nil
}

// ListRuns returns run summaries, newest first. An empty url lists every
// run. A non-positive limit returns all matching runs.
func (r *RunDB) ListRuns(ctx context.Context, url string, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, url, started_at, finished_at, primary_keyword, degraded, error_count, saved_at
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var (
			s                 RunSummary
			started, finished int64
			savedAt           string
		)
		if err := rows.Scan(&s.ID, &s.URL, &started, &finished, &s.PrimaryKeyword, &s.Degraded, &s.ErrorCount, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = time.Unix(0, started)
		if finished != 0 {
			s.FinishedAt = time.Unix(0, finished)
		}
		s.SavedAt = parseTimestamp(savedAt)
		results = append(results, s)
	}

	return results, rows.Err()
}

// ListAuditedURLs returns every URL with at least one stored run.
func (r *RunDB) ListAuditedURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT url FROM runs ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp, returning zero time when no
// known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
