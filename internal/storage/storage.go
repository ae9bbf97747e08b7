package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/pipeline"
)

const (
	dbFile = "history.db"

	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("run not found")

// Store persists run history
type Store struct {
	db      *sql.DB
	dataDir string
}

// RunRecord is a stored run summary
type RunRecord struct {
	ID         string                 `json:"id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Emitted    int                    `json:"emitted"`
	Duplicates int                    `json:"duplicates"`
	Candidates int                    `json:"candidates"`
	Reports    []pipeline.VenueReport `json:"reports,omitempty"`
}

// ExpandDir expands a leading ~/ to the user's home directory.
func ExpandDir(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return dir, nil
}

// Open creates the data directory if needed, opens history.db and applies migrations.
func Open(dataDir string) (*Store, error) {
	dataDir, err := ExpandDir(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dataDir: dataDir}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DataDir returns the expanded data directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// SaveRun stores a run with its reports and candidates in one transaction.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, emitted, duplicates, candidates)
         VALUES (?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.StartedAt.UTC().Format(timeLayout),
		res.FinishedAt.UTC().Format(timeLayout),
		res.Emitted,
		res.Duplicates,
		len(res.Candidates),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, r := range res.Reports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO venue_reports (run_id, position, venue, slug, status, event_count, urls_tried, urls_failed, error)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, r.Venue, r.Slug, string(r.Status), r.EventCount, r.URLsTried, r.URLsFailed, r.Error,
		); err != nil {
			return fmt.Errorf("inserting report for %s: %w", r.Slug, err)
		}
	}

	for i, c := range res.Candidates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (run_id, position, dedup_key, title, artist_name, venue_name, venue_slug,
                                     event_date, hour, minute, has_time, fallback, raw_context, source_url)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, c.DedupKey(), c.Title, c.ArtistName, c.VenueName, c.VenueSlug,
			c.Date.Key(), c.Date.Hour, c.Date.Minute, c.Date.HasTime, c.Date.Fallback, c.RawContext, c.SourceURL,
		); err != nil {
			return fmt.Errorf("inserting candidate %q: %w", c.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run with its reports.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	run := runs[0]
	if run.Reports, err = s.reports(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun returns one run with its reports.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, emitted, duplicates, candidates FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if run.Reports, err = s.reports(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. Reports are not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, emitted, duplicates, candidates
         FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		run               RunRecord
		started, finished string
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.Emitted, &run.Duplicates, &run.Candidates); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	return &run, nil
}

func (s *Store) reports(ctx context.Context, runID string) ([]pipeline.VenueReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT venue, slug, status, event_count, urls_tried, urls_failed, error
         FROM venue_reports WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading reports: %w", err)
	}
	defer rows.Close()

	var reports []pipeline.VenueReport
	for rows.Next() {
		var (
			r      pipeline.VenueReport
			status string
		)
		if err := rows.Scan(&r.Venue, &r.Slug, &status, &r.EventCount, &r.URLsTried, &r.URLsFailed, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		r.Status = pipeline.Status(status)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Candidates returns a run's stored candidates in their original order.
func (s *Store) Candidates(ctx context.Context, runID string) ([]*event.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, artist_name, venue_name, venue_slug, event_date, hour, minute, has_time, fallback, raw_context, source_url
         FROM candidates WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}
	defer rows.Close()

	var out []*event.Candidate
	for rows.Next() {
		var (
			c       event.Candidate
			dateKey string
			hour    int
			minute  int
			hasTime bool
			fb      bool
		)
		if err := rows.Scan(&c.Title, &c.ArtistName, &c.VenueName, &c.VenueSlug, &dateKey,
			&hour, &minute, &hasTime, &fb, &c.RawContext, &c.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		date, err := event.ParseKey(dateKey)
		if err != nil {
			return nil, err
		}
		date.Hour, date.Minute, date.HasTime, date.Fallback = hour, minute, hasTime, fb
		c.Date = date
		out = append(out, &c)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the candidates of the most recent run as a snapshot.
// With no stored runs it returns an empty snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (*event.Snapshot, error) {
	run, err := s.LatestRun(ctx)
	if errors.Is(err, ErrNotFound) {
		return event.NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}
	candidates, err := s.Candidates(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return event.CreateSnapshot(candidates, run.FinishedAt.Format(time.RFC3339)), nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
             SELECT id FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT ?
         )`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}
