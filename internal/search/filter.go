// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// ApplyFilters returns the records matching every active predicate in spec.
// An empty spec returns records unchanged.
func ApplyFilters(records []types.PaperRecord, spec types.FilterSpec) []types.PaperRecord {
	if spec.IsEmpty() {
		return records
	}
	out := make([]types.PaperRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, spec) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyRankedFilters filters ranked results by their records, keeping rank order.
func ApplyRankedFilters(results []types.RankedResult, spec types.FilterSpec) []types.RankedResult {
	if spec.IsEmpty() {
		return results
	}
	out := make([]types.RankedResult, 0, len(results))
	for _, rr := range results {
		if Matches(rr.Record, spec) {
			out = append(out, rr)
		}
	}
	return out
}

// Matches reports whether r satisfies every active predicate in spec.
//
// A year bound excludes records without a year. Records with no field tags
// pass every domain filter. Keywords match if any one of them appears in
// the title or abstract.
func Matches(r types.PaperRecord, spec types.FilterSpec) bool {
	if spec.MinYear != nil && (r.Year == nil || *r.Year < *spec.MinYear) {
		return false
	}
	if spec.MaxYear != nil && (r.Year == nil || *r.Year > *spec.MaxYear) {
		return false
	}
	if spec.MinCitations != nil && r.Citations < *spec.MinCitations {
		return false
	}
	if spec.MaxCitations != nil && r.Citations > *spec.MaxCitations {
		return false
	}
	if len(spec.Domains) > 0 && !matchesDomain(r.Fields, spec.Domains) {
		return false
	}
	if len(spec.Keywords) > 0 && !matchesKeywords(r, spec.Keywords) {
		return false
	}
	return true
}

func matchesDomain(fields, domains []string) bool {
	if len(fields) == 0 {
		return true
	}
	active := false
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		active = true
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), d) {
				return true
			}
		}
	}
	return !active
}

func matchesKeywords(r types.PaperRecord, keywords []string) bool {
	text := strings.ToLower(r.Title + " " + r.Abstract)
	active := false
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		active = true
		if strings.Contains(text, k) {
			return true
		}
	}
	return !active
}
