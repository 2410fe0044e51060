// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for research-buddy: the
// normalized paper record produced by source adapters, the ranked result
// returned to callers, the filter predicate, and configuration.
package types

import "strings"

// Source tags the external API a PaperRecord came from.
type Source string

const (
	SourceArxiv           Source = "arXiv"
	SourceSemanticScholar Source = "Semantic Scholar"
	SourcePubMed          Source = "PubMed"
)

// PaperRecord is a normalized search result. Records are created by source
// adapters and treated as immutable values afterwards; a re-fetch replaces
// the stored copy by ID.
type PaperRecord struct {
	// ID is unique within a source. The same paper found by two sources
	// carries two different IDs.
	ID string `json:"id" yaml:"id"`

	// Title is never empty once a record leaves an adapter.
	Title string `json:"title" yaml:"title"`

	// Authors is the author list joined with ", ".
	Authors string `json:"authors" yaml:"authors"`

	// Abstract may be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Year is nil when the source did not report a publication year.
	Year *int `json:"year,omitempty" yaml:"year,omitempty"`

	Venue string `json:"venue" yaml:"venue"`

	// Citations defaults to 0 for sources that do not report counts.
	Citations int `json:"citations" yaml:"citations"`

	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	Source Source `json:"source" yaml:"source"`

	// Fields holds domain tags (arXiv categories, fields of study, MeSH
	// headings). Empty when the source provides none.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// YearOf returns a pointer to y, or nil when y is not a plausible year.
func YearOf(y int) *int {
	if y <= 0 {
		return nil
	}
	return &y
}

// JoinAuthors joins author names the way PaperRecord.Authors expects,
// skipping blanks.
func JoinAuthors(names []string) string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, ", ")
}

// FirstAuthor returns the first name in Authors, or "" when there is none.
func (p PaperRecord) FirstAuthor() string {
	first, _, _ := strings.Cut(p.Authors, ", ")
	return first
}
