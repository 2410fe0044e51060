// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper records and query history in SQLite.
// It is consulted for history and offline lookups and sits outside the
// ranking path.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "papers.db"

const defaultLimit = 20

var (
	ErrNotFound = errors.New("paper not found")

	// ErrInvalidRecord marks a record the schema cannot hold (no ID or no
	// title). Batches count these as skipped.
	ErrInvalidRecord = errors.New("invalid paper record")
)

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT,
			year INTEGER,
			venue TEXT,
			citations INTEGER NOT NULL DEFAULT 0,
			url TEXT,
			pdf_url TEXT,
			source TEXT,
			fields TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_citations ON papers(citations)`,
		`CREATE TABLE IF NOT EXISTS query_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			refined_query TEXT,
			results_count INTEGER,
			sources_responded TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			query TEXT NOT NULL,
			results_count INTEGER,
			filters TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_history_session ON search_history(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddOrUpdate upserts r by its ID. It reports whether the row was new.
func (s *Store) AddOrUpdate(ctx context.Context, r types.PaperRecord) (inserted bool, err error) {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Title) == "" {
		return false, fmt.Errorf("%w: id=%q title=%q", ErrInvalidRecord, r.ID, r.Title)
	}

	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return false, fmt.Errorf("encoding fields: %w", err)
	}
	var year sql.NullInt64
	if r.Year != nil {
		year = sql.NullInt64{Int64: int64(*r.Year), Valid: true}
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM papers WHERE paper_id = ?`, r.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking paper %s: %w", r.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (paper_id, title, authors, abstract, year, venue, citations, url, pdf_url, source, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			year=excluded.year, venue=excluded.venue, citations=excluded.citations,
			url=excluded.url, pdf_url=excluded.pdf_url, source=excluded.source,
			fields=excluded.fields, updated_at=excluded.updated_at`,
		r.ID, r.Title, r.Authors, r.Abstract, year, r.Venue, max(r.Citations, 0),
		r.URL, r.PDFURL, string(r.Source), string(fields), now, now,
	)
	if err != nil {
		return false, fmt.Errorf("upserting paper %s: %w", r.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing paper %s: %w", r.ID, err)
	}
	return exists == 0, nil
}

// BatchSummary holds counts from a StoreBatch run.
type BatchSummary struct {
	Stored  int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of records processed.
func (s BatchSummary) Total() int {
	return s.Stored + s.Updated + s.Skipped + s.Failed
}

// StoreBatch upserts records one by one. A failure is counted and the
// batch continues. Invalid records and IDs repeated within the batch are
// skipped. Per-record failures are written to w.
func (s *Store) StoreBatch(ctx context.Context, records []types.PaperRecord, w io.Writer) BatchSummary {
	if w == nil {
		w = io.Discard
	}
	var summary BatchSummary
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		if ctx.Err() != nil {
			summary.Failed++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			summary.Skipped++
			continue
		}
		seen[r.ID] = struct{}{}

		inserted, err := s.AddOrUpdate(ctx, r)
		switch {
		case errors.Is(err, ErrInvalidRecord):
			fmt.Fprintf(w, "skipped %s: %v\n", r.ID, err)
			summary.Skipped++
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", r.ID, err)
			summary.Failed++
		case inserted:
			summary.Stored++
		default:
			summary.Updated++
		}
	}
	return summary
}

const paperColumns = `paper_id, title, authors, abstract, year, venue, citations, url, pdf_url, source, fields`

// Get returns the stored record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (types.PaperRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE paper_id = ?`, id)
	r, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PaperRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Search returns papers whose title or abstract contains substring,
// most cited first. A non-positive limit uses the default of 20.
func (s *Store) Search(ctx context.Context, substring string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	pattern := "%" + escapeLike(substring) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers
		 WHERE title LIKE ? ESCAPE '\' OR abstract LIKE ? ESCAPE '\'
		 ORDER BY citations DESC, id ASC
		 LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	var out []types.PaperRecord
	for rows.Next() {
		r, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(sc scanner) (types.PaperRecord, error) {
	var (
		r                                     types.PaperRecord
		authors, abstract, venue, url, pdfURL sql.NullString
		source, fields                        sql.NullString
		year                                  sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.Title, &authors, &abstract, &year, &venue, &r.Citations, &url, &pdfURL, &source, &fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning paper: %w", err)
	}
	r.Authors = authors.String
	r.Abstract = abstract.String
	r.Venue = venue.String
	r.URL = url.String
	r.PDFURL = pdfURL.String
	r.Source = types.Source(source.String)
	if year.Valid {
		r.Year = types.YearOf(int(year.Int64))
	}
	if fields.Valid && fields.String != "" && fields.String != "null" {
		if err := json.Unmarshal([]byte(fields.String), &r.Fields); err != nil {
			return r, fmt.Errorf("decoding fields for %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
