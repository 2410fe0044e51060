// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders nearest-neighbor hits by a fixed composite of
// semantic similarity, citation count and publication recency.
package rank

import (
	"fmt"
	"sort"
	"time"

	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// Score weights in tenths. They sum to 10, so FinalScore stays in [0,1]
// and all-ones inputs give exactly 1.
const (
	similarityWeight = 6
	citationWeight   = 3
	recencyWeight    = 1
)

// CitationSaturation is the citation count at which CitationScore reaches 1.
const CitationSaturation = 1000

// CitationScore is min(citations/1000, 1). Negative counts score 0.
func CitationScore(citations int) float64 {
	if citations <= 0 {
		return 0
	}
	return min(float64(citations)/CitationSaturation, 1)
}

// RecencyScore bands a paper's age in calendar years relative to now. A
// missing year is neutral (0.5); a future year counts as brand new.
func RecencyScore(year *int, now time.Time) float64 {
	if year == nil {
		return 0.5
	}
	age := now.Year() - *year
	switch {
	case age <= 2:
		return 1.0
	case age <= 5:
		return 0.8
	case age <= 10:
		return 0.6
	default:
		return 0.4
	}
}

// FinalScore is 0.6·similarity + 0.3·citation + 0.1·recency.
func FinalScore(similarity, citation, recency float64) float64 {
	return (similarityWeight*similarity + citationWeight*citation + recencyWeight*recency) / 10
}

// Searcher is the part of the index the ranker needs.
type Searcher interface {
	Search(query []float32, k int) ([]index.Hit, error)
}

// Ranker scores index hits. Now defaults to time.Now.
type Ranker struct {
	Index Searcher
	Now   func() time.Time
}

// Rank retrieves the k nearest records to queryVector and returns them
// sorted by FinalScore, highest first. Equal scores keep similarity order.
func (r *Ranker) Rank(queryVector []float32, k int) ([]types.RankedResult, error) {
	if r.Index == nil {
		return nil, fmt.Errorf("ranker has no index")
	}
	hits, err := r.Index.Search(queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return r.Score(hits), nil
}

// Score computes the composite score for pre-fetched hits and sorts them.
func (r *Ranker) Score(hits []index.Hit) []types.RankedResult {
	now := time.Now()
	if r != nil && r.Now != nil {
		now = r.Now()
	}

	results := make([]types.RankedResult, len(hits))
	for i, h := range hits {
		cit := CitationScore(h.Record.Citations)
		rec := RecencyScore(h.Record.Year, now)
		results[i] = types.RankedResult{
			Record:        h.Record,
			Similarity:    h.Similarity,
			CitationScore: cit,
			RecencyScore:  rec,
			FinalScore:    FinalScore(h.Similarity, cit, rec),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	return results
}
