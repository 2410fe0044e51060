// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-buddy/internal/embedding"
	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/internal/search"
	"github.com/pdiddy/research-buddy/internal/source"
	"github.com/pdiddy/research-buddy/internal/store"
	"github.com/pdiddy/research-buddy/pkg/types"
)

const testDims = 64

var fixedNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type stubBackend struct {
	name    types.Source
	records []types.PaperRecord
	err     error
	queries []string
}

func (s *stubBackend) Name() types.Source { return s.name }

func (s *stubBackend) Search(_ context.Context, query string, _ int) ([]types.PaperRecord, error) {
	s.queries = append(s.queries, query)
	return s.records, s.err
}

type stubLLM struct{ answer string }

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Generate(context.Context, string, string) (string, error) { return s.answer, nil }

type failingEmbedder struct{ embedding.Provider }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder offline")
}

func rec(id, title, abstract string, year, cites int, src types.Source) types.PaperRecord {
	return types.PaperRecord{ID: id, Title: title, Abstract: abstract, Year: types.YearOf(year), Citations: cites, Source: src}
}

func corpus() (*stubBackend, *stubBackend) {
	arxiv := &stubBackend{name: types.SourceArxiv, records: []types.PaperRecord{
		rec("arxiv:1", "Graph Neural Networks for Molecules", "graph neural networks predict molecular properties", 2024, 0, types.SourceArxiv),
		rec("arxiv:2", "Old Graph Kernels", "graph kernels for molecule classification", 2008, 0, types.SourceArxiv),
	}}
	s2 := &stubBackend{name: types.SourceSemanticScholar, records: []types.PaperRecord{
		rec("s2:1", "Graph neural networks for molecules!", "duplicate by title", 2024, 300, types.SourceSemanticScholar),
		rec("s2:2", "Message Passing Neural Networks", "neural message passing for quantum chemistry graph networks", 2017, 5000, types.SourceSemanticScholar),
	}}
	return arxiv, s2
}

func newEngine(t *testing.T, backends ...source.Backend) (*Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, store.DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := index.Open(filepath.Join(dir, "index"), testDims, embedding.HashModelName)
	require.NoError(t, err)

	return &Engine{
		Aggregator: &search.Aggregator{Backends: backends, Timeout: 2 * time.Second},
		Store:      st,
		Index:      idx,
		Embedder:   embedding.NewHashProvider(testDims),
		Now:        func() time.Time { return fixedNow },
	}, st
}

func TestIngest(t *testing.T) {
	arxiv, s2 := corpus()
	e, st := newEngine(t, arxiv, s2)
	ctx := context.Background()

	res, err := e.Ingest(ctx, "graph neural networks", 10)
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 3, res.Batch.Stored)
	assert.Equal(t, 3, res.Indexed)
	assert.Equal(t, "2 of 2 sources responded", res.Outcome.Summary())

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again, err := e.Ingest(ctx, "graph neural networks", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Batch.Updated)
	assert.Equal(t, 0, again.Indexed, "already indexed papers are not embedded twice")
}

func TestIngestAllSourcesFail(t *testing.T) {
	down := &stubBackend{name: types.SourceArxiv, err: &source.Error{Source: types.SourceArxiv, Kind: source.KindTransport, Err: errors.New("refused")}}
	e, _ := newEngine(t, down)

	res, err := e.Ingest(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, IsNoResults(err))
	assert.Equal(t, "0 of 1 sources responded", res.Outcome.Summary())
	assert.Equal(t, 0, res.Indexed)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	arxiv, _ := corpus()
	e, _ := newEngine(t, arxiv)
	e.Embedder = failingEmbedder{e.Embedder}

	_, err := e.Ingest(context.Background(), "graph", 5)
	require.Error(t, err)
	assert.ErrorContains(t, err, "embedder offline")
	assert.False(t, IsNoResults(err))
}

func TestIngestDimensionMismatchIsFatal(t *testing.T) {
	arxiv, _ := corpus()
	e, _ := newEngine(t, arxiv)
	e.Embedder = embedding.NewHashProvider(testDims * 2)

	_, err := e.Ingest(context.Background(), "graph", 5)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestRankAppliesFiltersAndK(t *testing.T) {
	arxiv, s2 := corpus()
	e, _ := newEngine(t, arxiv, s2)
	ctx := context.Background()
	_, err := e.Ingest(ctx, "graph neural networks", 10)
	require.NoError(t, err)

	all, err := e.Rank(ctx, "graph neural networks molecules", 10, types.FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].FinalScore, all[i].FinalScore)
	}

	top, err := e.Rank(ctx, "graph neural networks molecules", 1, types.FilterSpec{})
	require.NoError(t, err)
	assert.Len(t, top, 1)

	recent, err := e.Rank(ctx, "graph", 10, types.FilterSpec{MinYear: types.IntPtr(2020)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "arxiv:1", recent[0].Record.ID)

	_, err = e.Rank(ctx, "  ", 3, types.FilterSpec{})
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func TestAskParsesHintsAndLogs(t *testing.T) {
	arxiv, s2 := corpus()
	e, st := newEngine(t, arxiv, s2)
	ctx := context.Background()

	ans, err := e.Ask(ctx, "highly cited graph neural networks", AskOptions{SessionID: "sess-1"})
	require.NoError(t, err)
	require.NotNil(t, ans.Filters.MinCitations)
	assert.Equal(t, 100, *ans.Filters.MinCitations)
	require.Len(t, ans.Results, 1)
	assert.Equal(t, "s2:2", ans.Results[0].Record.ID)

	queries, err := st.RecentQueries(ctx, 5)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "highly cited graph neural networks", queries[0].Query)
	assert.Equal(t, 1, queries[0].ResultsCount)

	searches, err := st.RecentSearches(ctx, "sess-1", 5)
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, 100, *searches[0].Filters.MinCitations)
}

func TestAskExplicitFiltersOverrideHints(t *testing.T) {
	arxiv, s2 := corpus()
	e, _ := newEngine(t, arxiv, s2)

	ans, err := e.Ask(context.Background(), "recent graph papers", AskOptions{
		Filters: types.FilterSpec{MinYear: types.IntPtr(2000)},
		TopK:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2000, *ans.Filters.MinYear)
	assert.Len(t, ans.Results, 3)
}

func TestAskRefinesQuery(t *testing.T) {
	arxiv, _ := corpus()
	e, st := newEngine(t, arxiv)
	e.LLM = &stubLLM{answer: `{"main_topic":"graph neural networks","keywords":["gnn"]}`}

	ans, err := e.Ask(context.Background(), "what's new with GNNs", AskOptions{Refine: true})
	require.NoError(t, err)
	assert.Equal(t, "graph neural networks", ans.SearchText)
	assert.True(t, ans.Parameters.Refined)
	assert.Equal(t, []string{"graph neural networks"}, arxiv.queries)

	queries, err := st.RecentQueries(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "graph neural networks", queries[0].RefinedQuery)
}

func TestAskNoResults(t *testing.T) {
	empty := &stubBackend{name: types.SourcePubMed}
	e, st := newEngine(t, empty)
	var progress bytes.Buffer
	e.Progress = &progress

	ans, err := e.Ask(context.Background(), "gibberish topic", AskOptions{})
	require.Error(t, err)
	assert.True(t, IsNoResults(err))
	assert.Equal(t, search.StatusEmpty, ans.Ingest.Outcome.Status())

	queries, err := st.RecentQueries(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, queries, 1, "empty answers are still logged")
}

func TestAskFiltersExcludeEverything(t *testing.T) {
	arxiv, _ := corpus()
	e, _ := newEngine(t, arxiv)

	_, err := e.Ask(context.Background(), "graph papers between 1990 and 1995", AskOptions{})
	require.Error(t, err)
	assert.True(t, IsNoResults(err))
	assert.ErrorContains(t, err, "years 1990-1995")
}

func TestAskEmptyQuestion(t *testing.T) {
	e, _ := newEngine(t, &stubBackend{name: types.SourceArxiv})
	_, err := e.Ask(context.Background(), "   ", AskOptions{})
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}
