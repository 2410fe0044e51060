// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// QueryLog is one row of query_history: a user question and what came back.
type QueryLog struct {
	ID               int64     `json:"id" yaml:"id"`
	Query            string    `json:"query" yaml:"query"`
	RefinedQuery     string    `json:"refined_query,omitempty" yaml:"refined_query,omitempty"`
	ResultsCount     int       `json:"results_count" yaml:"results_count"`
	SourcesResponded string    `json:"sources_responded,omitempty" yaml:"sources_responded,omitempty"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

// SearchLog is one row of search_history, grouped by session.
type SearchLog struct {
	ID           int64            `json:"id" yaml:"id"`
	SessionID    string           `json:"session_id" yaml:"session_id"`
	Query        string           `json:"query" yaml:"query"`
	ResultsCount int              `json:"results_count" yaml:"results_count"`
	Filters      types.FilterSpec `json:"filters" yaml:"filters"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
}

// LogQuery appends q to query_history. CreatedAt defaults to now.
func (s *Store) LogQuery(ctx context.Context, q QueryLog) error {
	if q.Query == "" {
		return fmt.Errorf("logging query: %w", ErrInvalidRecord)
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (query, refined_query, results_count, sources_responded, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.Query, q.RefinedQuery, q.ResultsCount, q.SourcesResponded, created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("logging query: %w", err)
	}
	return nil
}

// RecentQueries returns the latest query_history rows, newest first.
func (s *Store) RecentQueries(ctx context.Context, limit int) ([]QueryLog, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, refined_query, results_count, sources_responded, created_at
		 FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	var out []QueryLog
	for rows.Next() {
		var (
			q                  QueryLog
			refined, responded sql.NullString
			count              sql.NullInt64
			created            string
		)
		if err := rows.Scan(&q.ID, &q.Query, &refined, &count, &responded, &created); err != nil {
			return nil, fmt.Errorf("scanning query: %w", err)
		}
		q.RefinedQuery = refined.String
		q.SourcesResponded = responded.String
		q.ResultsCount = int(count.Int64)
		q.CreatedAt = parseTime(created)
		out = append(out, q)
	}
	return out, rows.Err()
}

// LogSearch appends l to search_history. CreatedAt defaults to now.
func (s *Store) LogSearch(ctx context.Context, l SearchLog) error {
	if l.SessionID == "" || l.Query == "" {
		return fmt.Errorf("logging search: %w", ErrInvalidRecord)
	}
	filters, err := json.Marshal(l.Filters)
	if err != nil {
		return fmt.Errorf("encoding filters: %w", err)
	}
	created := l.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_history (session_id, query, results_count, filters, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.SessionID, l.Query, l.ResultsCount, string(filters), created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("logging search: %w", err)
	}
	return nil
}

// RecentSearches returns the latest searches, newest first. An empty
// sessionID lists every session.
func (s *Store) RecentSearches(ctx context.Context, sessionID string, limit int) ([]SearchLog, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, results_count, filters, created_at
		 FROM search_history
		 WHERE ? = '' OR session_id = ?
		 ORDER BY id DESC LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer rows.Close()

	var out []SearchLog
	for rows.Next() {
		var (
			l       SearchLog
			count   sql.NullInt64
			filters sql.NullString
			created string
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Query, &count, &filters, &created); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		l.ResultsCount = int(count.Int64)
		if filters.Valid && filters.String != "" {
			if err := json.Unmarshal([]byte(filters.String), &l.Filters); err != nil {
				return nil, fmt.Errorf("decoding filters: %w", err)
			}
		}
		l.CreatedAt = parseTime(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
