// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// RankedResult is a PaperRecord with its score components. It is recomputed
// for every ranking request and never persisted.
type RankedResult struct {
	Record PaperRecord `json:"record" yaml:"record"`

	// Similarity is 1/(1+distance) from the embedding index, in (0,1].
	Similarity float64 `json:"similarity" yaml:"similarity"`

	// CitationScore is min(citations/1000, 1).
	CitationScore float64 `json:"citation_score" yaml:"citation_score"`

	// RecencyScore is the banded age score in [0,1].
	RecencyScore float64 `json:"recency_score" yaml:"recency_score"`

	FinalScore float64 `json:"final_score" yaml:"final_score"`
}

// FilterSpec is an optional set of inclusion predicates. A nil pointer or
// empty slice means no constraint on that field; active fields are ANDed.
type FilterSpec struct {
	MinYear      *int     `json:"min_year,omitempty" yaml:"min_year,omitempty"`
	MaxYear      *int     `json:"max_year,omitempty" yaml:"max_year,omitempty"`
	MinCitations *int     `json:"min_citations,omitempty" yaml:"min_citations,omitempty"`
	MaxCitations *int     `json:"max_citations,omitempty" yaml:"max_citations,omitempty"`
	Domains      []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	Keywords     []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// IsEmpty reports whether no predicate is active.
func (f FilterSpec) IsEmpty() bool {
	return f.MinYear == nil && f.MaxYear == nil &&
		f.MinCitations == nil && f.MaxCitations == nil &&
		len(f.Domains) == 0 && len(f.Keywords) == 0
}

// Merge returns f with every field that is active in other overriding f's
// value. Explicit user filters are merged over parsed hints this way.
func (f FilterSpec) Merge(other FilterSpec) FilterSpec {
	out := f
	if other.MinYear != nil {
		out.MinYear = other.MinYear
	}
	if other.MaxYear != nil {
		out.MaxYear = other.MaxYear
	}
	if other.MinCitations != nil {
		out.MinCitations = other.MinCitations
	}
	if other.MaxCitations != nil {
		out.MaxCitations = other.MaxCitations
	}
	if len(other.Domains) > 0 {
		out.Domains = other.Domains
	}
	if len(other.Keywords) > 0 {
		out.Keywords = other.Keywords
	}
	return out
}

// Summary returns a one-line human-readable description of active filters.
func (f FilterSpec) Summary() string {
	if f.IsEmpty() {
		return "No filters active"
	}
	var parts []string
	if f.MinYear != nil || f.MaxYear != nil {
		from, to := "any", "present"
		if f.MinYear != nil {
			from = fmt.Sprintf("%d", *f.MinYear)
		}
		if f.MaxYear != nil {
			to = fmt.Sprintf("%d", *f.MaxYear)
		}
		parts = append(parts, fmt.Sprintf("years %s-%s", from, to))
	}
	if f.MinCitations != nil {
		parts = append(parts, fmt.Sprintf("min citations %d", *f.MinCitations))
	}
	if f.MaxCitations != nil {
		parts = append(parts, fmt.Sprintf("max citations %d", *f.MaxCitations))
	}
	if len(f.Domains) > 0 {
		parts = append(parts, "domains "+strings.Join(f.Domains, ", "))
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, "keywords "+strings.Join(f.Keywords, ", "))
	}
	return strings.Join(parts, "; ")
}

// IntPtr returns a pointer to v. Convenient for building FilterSpec literals.
func IntPtr(v int) *int { return &v }
