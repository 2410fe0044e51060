// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine wires aggregation, persistence, embedding, indexing and
// ranking into the ingest and ask flows used by the CLI and the agent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/research-buddy/internal/embedding"
	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/internal/llm"
	"github.com/pdiddy/research-buddy/internal/rank"
	"github.com/pdiddy/research-buddy/internal/search"
	"github.com/pdiddy/research-buddy/internal/store"
	"github.com/pdiddy/research-buddy/pkg/types"
)

const (
	DefaultPerSourceLimit = 20
	DefaultTopK           = 5

	// candidateFactor widens the ranked pool before post-filtering so a
	// filter still leaves up to k results.
	candidateFactor = 4
	minCandidates   = 50
)

// Aggregator fans a query out to the sources.
type Aggregator interface {
	SearchAll(ctx context.Context, query string, perSourceLimit int) (search.Outcome, error)
}

// PaperStore is the persistence the engine writes to.
type PaperStore interface {
	StoreBatch(ctx context.Context, records []types.PaperRecord, w io.Writer) store.BatchSummary
	LogQuery(ctx context.Context, q store.QueryLog) error
	LogSearch(ctx context.Context, l store.SearchLog) error
}

// VectorIndex is the embedding index the engine appends to and ranks from.
type VectorIndex interface {
	rank.Searcher
	Add(vectors [][]float32, records []types.PaperRecord) error
	Contains(id string) bool
}

// Engine holds every collaborator explicitly. LLM may be nil.
type Engine struct {
	Aggregator Aggregator
	Store      PaperStore
	Index      VectorIndex
	Embedder   embedding.Provider
	LLM        llm.Client
	Logger     *slog.Logger

	// Progress receives per-record store failures. Nil discards.
	Progress io.Writer

	// Now defaults to time.Now; ranking recency and filter hints use it.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// IngestResult reports what one ingest pass did.
type IngestResult struct {
	Outcome search.Outcome

	// Records are the deduplicated aggregation results.
	Records []types.PaperRecord
	Removed int

	Batch   store.BatchSummary
	Indexed int
}

// Ingest aggregates query across the sources, deduplicates, stores, embeds
// and indexes the results. Only records not already in the index are
// embedded. When no source returns a record the result is still filled in
// and the error matches search.ErrNoResults.
func (e *Engine) Ingest(ctx context.Context, query string, perSourceLimit int) (IngestResult, error) {
	if perSourceLimit <= 0 {
		perSourceLimit = DefaultPerSourceLimit
	}
	out, err := e.Aggregator.SearchAll(ctx, query, perSourceLimit)
	if err != nil {
		return IngestResult{}, err
	}
	res := IngestResult{Outcome: out}
	if err := out.Err(); err != nil {
		return res, err
	}

	res.Records, res.Removed = search.Dedupe(out.Records)
	e.logger().Info("aggregated", "query", query, "records", len(res.Records),
		"duplicates", res.Removed, "responded", out.Summary())

	if e.Store != nil {
		res.Batch = e.Store.StoreBatch(ctx, res.Records, e.Progress)
	}

	res.Indexed, err = e.IndexRecords(ctx, res.Records)
	return res, err
}

// IndexRecords embeds and indexes the records not already in the index and
// returns how many were added.
func (e *Engine) IndexRecords(ctx context.Context, records []types.PaperRecord) (int, error) {
	var fresh []types.PaperRecord
	for _, r := range records {
		if !e.Index.Contains(r.ID) {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	vectors, err := e.Embedder.EmbedBatch(ctx, embedding.PaperTexts(fresh))
	if err != nil {
		return 0, fmt.Errorf("embedding %d papers: %w", len(fresh), err)
	}
	if err := e.Index.Add(vectors, fresh); err != nil {
		return 0, fmt.Errorf("indexing papers: %w", err)
	}
	e.logger().Debug("indexed", "count", len(fresh), "model", e.Embedder.ModelName())
	return len(fresh), nil
}

// Rank embeds query and returns the k best index entries that pass filters.
func (e *Engine) Rank(ctx context.Context, query string, k int, filters types.FilterSpec) ([]types.RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}
	qv, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	pool := k
	if !filters.IsEmpty() {
		pool = max(k*candidateFactor, minCandidates)
	}
	r := &rank.Ranker{Index: e.Index, Now: e.Now}
	results, err := r.Rank(qv.Vector, pool)
	if err != nil {
		return nil, err
	}
	results = search.ApplyRankedFilters(results, filters)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// AskOptions tunes one Ask call. Zero values take the engine defaults.
type AskOptions struct {
	// Filters are explicit user filters; they override parsed hints.
	Filters types.FilterSpec

	// NoHints disables filter phrases parsed from the question.
	NoHints bool

	// Refine asks the LLM to restructure the question before searching.
	Refine bool

	PerSourceLimit int
	TopK           int

	// SessionID groups search history rows.
	SessionID string
}

// Answer is everything a renderer needs to present an Ask result.
type Answer struct {
	Question   string
	SearchText string
	Parameters llm.QueryParameters
	Filters    types.FilterSpec
	Results    []types.RankedResult
	Ingest     IngestResult
}

// Ask answers a natural-language research question: parse filter hints,
// optionally refine, ingest, rank and log. It returns the partially filled
// Answer together with an error matching search.ErrNoResults when nothing
// survives.
func (e *Engine) Ask(ctx context.Context, question string, opts AskOptions) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, search.ErrEmptyQuery
	}

	ans := Answer{Question: question, SearchText: question}
	if !opts.NoHints {
		ans.Filters = search.ParseFilterHints(question, e.now())
	}
	ans.Filters = ans.Filters.Merge(opts.Filters)

	if opts.Refine {
		params, err := llm.RefineQuery(ctx, e.LLM, question)
		if err != nil {
			e.logger().Warn("query refinement failed, using the question as typed", "error", err)
		}
		ans.Parameters = params
		ans.SearchText = params.SearchText(question)
	}

	ingest, err := e.Ingest(ctx, ans.SearchText, opts.PerSourceLimit)
	ans.Ingest = ingest
	if err != nil {
		e.logHistory(ctx, ans, opts.SessionID)
		return ans, err
	}

	ans.Results, err = e.Rank(ctx, ans.SearchText, opts.TopK, ans.Filters)
	if err != nil {
		return ans, err
	}
	e.logHistory(ctx, ans, opts.SessionID)

	if len(ans.Results) == 0 {
		return ans, fmt.Errorf("%w: no papers match the active filters (%s)", search.ErrNoResults, ans.Filters.Summary())
	}
	return ans, nil
}

// logHistory records the question. History is best effort: a failed write
// is logged and never fails the answer.
func (e *Engine) logHistory(ctx context.Context, ans Answer, sessionID string) {
	if e.Store == nil {
		return
	}
	q := store.QueryLog{
		Query:            ans.Question,
		ResultsCount:     len(ans.Results),
		SourcesResponded: ans.Ingest.Outcome.Summary(),
	}
	if ans.SearchText != ans.Question {
		q.RefinedQuery = ans.SearchText
	}
	if err := e.Store.LogQuery(ctx, q); err != nil {
		e.logger().Warn("logging query failed", "error", err)
	}
	if sessionID == "" {
		return
	}
	err := e.Store.LogSearch(ctx, store.SearchLog{
		SessionID:    sessionID,
		Query:        ans.SearchText,
		ResultsCount: len(ans.Results),
		Filters:      ans.Filters,
	})
	if err != nil {
		e.logger().Warn("logging search failed", "error", err)
	}
}

// IsNoResults reports whether err is the expected empty outcome rather
// than a technical failure.
func IsNoResults(err error) bool {
	return errors.Is(err, search.ErrNoResults)
}

var (
	_ VectorIndex = (*index.Index)(nil)
	_ PaperStore  = (*store.Store)(nil)
	_ Aggregator  = (*search.Aggregator)(nil)
)
