package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/crosslink/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "crosslink.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores finished runs and their candidates.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run crosslink start first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		my_sitemap TEXT NOT NULL,
		target_sitemap TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		my_pages INTEGER NOT NULL DEFAULT 0,
		target_pages INTEGER NOT NULL DEFAULT 0,
		candidate_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pair ON runs(my_sitemap, target_sitemap);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS candidates (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		link_from TEXT NOT NULL,
		link_from_text TEXT NOT NULL,
		link_to TEXT NOT NULL,
		link_to_reason TEXT NOT NULL,
		link_score REAL NOT NULL,
		PRIMARY KEY (run_id, rank)
	);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the summary row of a stored run.
type RunRecord struct {
	ID             int64         `json:"id"`
	MySitemap      string        `json:"my_sitemap"`
	TargetSitemap  string        `json:"target_sitemap"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	MyPages        int           `json:"my_pages"`
	TargetPages    int           `json:"target_pages"`
	CandidateCount int           `json:"candidate_count"`
}

// SaveRun stores run and its ranked candidates in one transaction and
// returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ranked := run.Ranked
	if ranked == nil {
		ranked = model.Rank(run.Candidates)
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (my_sitemap, target_sitemap, started_at, duration_ms, my_pages, target_pages, candidate_count)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.MySitemap,
		run.TargetSitemap,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		len(run.MyPages),
		len(run.TargetPages),
		len(ranked),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO candidates (run_id, rank, link_from, link_from_text, link_to, link_to_reason, link_score)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range ranked {
		if _, err := stmt.ExecContext(ctx, id, i+1, c.LinkFrom, c.LinkFromText, c.LinkTo, c.LinkToReason, c.LinkScore); err != nil {
			return 0, fmt.Errorf("failed to insert candidate %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, my_sitemap, target_sitemap, started_at, duration_ms, my_pages, target_pages, candidate_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var rec RunRecord
	var startedAt string
	var durationMS int64
	err := s.Scan(
		&rec.ID,
		&rec.MySitemap,
		&rec.TargetSitemap,
		&startedAt,
		&durationMS,
		&rec.MyPages,
		&rec.TargetPages,
		&rec.CandidateCount,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.StartedAt = parseTimestamp(startedAt)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// GetRun returns the run with the given ID.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// PreviousRun returns the run for the same sitemap pair stored right
// before id. It returns ErrRunNotFound when there is none.
func (h *HistoryDB) PreviousRun(ctx context.Context, id int64) (*RunRecord, error) {
	cur, err := h.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	row := h.db.QueryRowContext(ctx, `
	SELECT `+runColumns+` FROM runs
	WHERE my_sitemap = ? AND target_sitemap = ? AND id < ?
	ORDER BY id DESC
	LIMIT 1
	`, cur.MySitemap, cur.TargetSitemap, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no run before %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous run: %w", err)
	}
	return &rec, nil
}

// GetRunCandidates returns the candidates of a run in rank order.
func (h *HistoryDB) GetRunCandidates(ctx context.Context, id int64) ([]model.IntersectionCandidate, error) {
	if _, err := h.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT link_from, link_from_text, link_to, link_to_reason, link_score
	FROM candidates
	WHERE run_id = ?
	ORDER BY rank
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	results := make([]model.IntersectionCandidate, 0)
	for rows.Next() {
		var c model.IntersectionCandidate
		if err := rows.Scan(&c.LinkFrom, &c.LinkFromText, &c.LinkTo, &c.LinkToReason, &c.LinkScore); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with the known formats. It returns the zero
// time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
