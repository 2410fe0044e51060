// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/pkg/types"
)

var fixedNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestCitationScore(t *testing.T) {
	tests := []struct {
		citations int
		want      float64
	}{
		{0, 0.0},
		{-5, 0.0},
		{500, 0.5},
		{1000, 1.0},
		{5000, 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CitationScore(tt.citations), "citations=%d", tt.citations)
	}
}

func TestRecencyScoreBands(t *testing.T) {
	tests := []struct {
		name string
		year *int
		want float64
	}{
		{"absent", nil, 0.5},
		{"future", types.IntPtr(2030), 1.0},
		{"age 0", types.IntPtr(2026), 1.0},
		{"age 2", types.IntPtr(2024), 1.0},
		{"age 3", types.IntPtr(2023), 0.8},
		{"age 5", types.IntPtr(2021), 0.8},
		{"age 6", types.IntPtr(2020), 0.6},
		{"age 10", types.IntPtr(2016), 0.6},
		{"age 11", types.IntPtr(2015), 0.4},
		{"ancient", types.IntPtr(1950), 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecencyScore(tt.year, fixedNow))
		})
	}
}

func TestRecencyScoreNonIncreasing(t *testing.T) {
	prev := RecencyScore(types.IntPtr(fixedNow.Year()), fixedNow)
	for age := 1; age <= 30; age++ {
		got := RecencyScore(types.IntPtr(fixedNow.Year()-age), fixedNow)
		assert.LessOrEqual(t, got, prev, "age %d", age)
		prev = got
	}
}

func TestFinalScoreConvex(t *testing.T) {
	assert.Equal(t, 1.0, FinalScore(1, 1, 1))
	assert.Equal(t, 0.0, FinalScore(0, 0, 0))
	assert.InDelta(t, 0.6*0.5+0.3*0.2+0.1*0.8, FinalScore(0.5, 0.2, 0.8), 1e-12)
}

type fakeIndex struct {
	hits []index.Hit
	err  error
	k    int
}

func (f *fakeIndex) Search(_ []float32, k int) ([]index.Hit, error) {
	f.k = k
	return f.hits, f.err
}

func TestRankOrdersByRecencyWhenAllElseEqual(t *testing.T) {
	// Hits arrive in the reverse of the expected order.
	var hits []index.Hit
	for _, y := range []int{2010, 2015, 2020, 2024} {
		hits = append(hits, index.Hit{
			Record:     types.PaperRecord{ID: "p", Year: types.YearOf(y)},
			Similarity: 0.5,
		})
	}
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	r := &Ranker{Index: &fakeIndex{hits: hits}, Now: func() time.Time { return now }}

	results, err := r.Rank([]float32{0}, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	var years []int
	for _, res := range results {
		years = append(years, *res.Record.Year)
	}
	assert.Equal(t, []int{2024, 2020, 2015, 2010}, years)
	assert.InDelta(t, 0.6*0.5+0.1*1.0, results[0].FinalScore, 1e-12)
	assert.InDelta(t, 0.6*0.5+0.1*0.4, results[3].FinalScore, 1e-12)
}

func TestRankStableOnTies(t *testing.T) {
	hits := []index.Hit{
		{Record: types.PaperRecord{ID: "first"}, Similarity: 0.7},
		{Record: types.PaperRecord{ID: "second"}, Similarity: 0.7},
		{Record: types.PaperRecord{ID: "cited", Citations: 1000}, Similarity: 0.1},
	}
	results := (&Ranker{Now: func() time.Time { return fixedNow }}).Score(hits)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Record.ID)
	assert.Equal(t, "second", results[1].Record.ID)
	assert.Equal(t, "cited", results[2].Record.ID)
	assert.Equal(t, 1.0, results[2].CitationScore)
}

func TestRankPassesK(t *testing.T) {
	fi := &fakeIndex{}
	r := &Ranker{Index: fi}
	results, err := r.Rank([]float32{1}, 7)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 7, fi.k)
}

func TestRankPropagatesDimensionMismatch(t *testing.T) {
	r := &Ranker{Index: &fakeIndex{err: index.ErrDimensionMismatch}}
	_, err := r.Rank([]float32{1}, 3)
	assert.True(t, errors.Is(err, index.ErrDimensionMismatch))

	_, err = (&Ranker{}).Rank([]float32{1}, 3)
	assert.Error(t, err)
}

func TestRankWithRealIndex(t *testing.T) {
	idx, err := index.Open(t.TempDir(), 2, "test-model")
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		[][]float32{{0, 0}, {0.1, 0}},
		[]types.PaperRecord{
			{ID: "exact-old", Year: types.YearOf(1990)},
			{ID: "close-cited", Year: types.YearOf(2025), Citations: 4000},
		},
	))

	r := &Ranker{Index: idx, Now: func() time.Time { return fixedNow }}
	results, err := r.Rank([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close-cited", results[0].Record.ID, "citations and recency outweigh a small distance")
	assert.Equal(t, 1.0, results[1].Similarity)
}
