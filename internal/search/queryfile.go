// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results.
// A saved search can be reloaded later without re-querying the APIs.
type QueryFile struct {
	Query   QueryParams         `yaml:"query"`
	Results []types.PaperRecord `yaml:"results"`
	Summary QuerySummary        `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text           string           `yaml:"text"`
	PerSourceLimit int              `yaml:"per_source_limit,omitempty"`
	Filters        types.FilterSpec `yaml:"filters,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int             `yaml:"total"`
	DuplicatesRemoved int             `yaml:"duplicates_removed"`
	Responded         string          `yaml:"responded"`
	Sources           []SourceSummary `yaml:"sources"`
	Timestamp         time.Time       `yaml:"timestamp"`
}

// SourceSummary is the serializable form of a SourceReport.
type SourceSummary struct {
	Source types.Source `yaml:"source"`
	Count  int          `yaml:"count"`
	Error  string       `yaml:"error,omitempty"`
	Kind   string       `yaml:"kind,omitempty"`
}

// NewQueryFile builds a QueryFile from a finished search. records are the
// results to save, usually the deduplicated and filtered set.
func NewQueryFile(params QueryParams, out Outcome, records []types.PaperRecord, removed int, now time.Time) QueryFile {
	qf := QueryFile{
		Query:   params,
		Results: records,
		Summary: QuerySummary{
			Total:             len(records),
			DuplicatesRemoved: removed,
			Responded:         out.Summary(),
			Timestamp:         now,
		},
	}
	for _, rep := range out.Reports {
		s := SourceSummary{Source: rep.Source, Count: rep.Count}
		if rep.Err != nil {
			s.Error = rep.Err.Error()
			s.Kind = string(rep.Kind)
		}
		qf.Summary.Sources = append(qf.Summary.Sources, s)
	}
	return qf
}

// WriteQueryFile saves qf to a YAML file.
func WriteQueryFile(path string, qf QueryFile) error {
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if qf.Query.Text == "" {
		return nil, fmt.Errorf("parsing query file: %w", ErrEmptyQuery)
	}
	return &qf, nil
}
