// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"
	"time"

	"github.com/pdiddy/research-buddy/pkg/types"
)

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestParseFilterHints(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		query            string
		minYear, maxYear any
		minCitations     any
	}{
		{"recent advances in protein folding", 2023, nil, nil},
		{"Latest work on diffusion models", 2023, nil, nil},
		{"papers on RL from the last 5 years", 2021, nil, nil},
		{"surveys from the past 2 years", 2024, nil, nil},
		{"vision transformers over the last decade", 2016, nil, nil},
		{"graph networks after 2020", 2020, nil, nil},
		{"CRISPR since 2015", 2015, nil, nil},
		{"perceptrons before 1990", nil, 1990, nil},
		{"after 2010 but before 2015", 2010, 2015, nil},
		{"speech recognition between 2012 and 2018", 2012, 2018, nil},
		{"between 2018 and 2012", 2012, 2018, nil},
		{"highly cited papers on attention", nil, nil, 100},
		{"influential reinforcement learning work", nil, nil, 50},
		{"recent highly cited influential work", 2023, nil, 100},
		{"quantum error correction", nil, nil, nil},
		{"after the war", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ParseFilterHints(tt.query, now)
			if v := intOrNil(got.MinYear); v != tt.minYear {
				t.Errorf("MinYear = %v, want %v", v, tt.minYear)
			}
			if v := intOrNil(got.MaxYear); v != tt.maxYear {
				t.Errorf("MaxYear = %v, want %v", v, tt.maxYear)
			}
			if v := intOrNil(got.MinCitations); v != tt.minCitations {
				t.Errorf("MinCitations = %v, want %v", v, tt.minCitations)
			}
		})
	}
}

func TestParseFilterHintsUnrecognizedIsEmpty(t *testing.T) {
	if spec := ParseFilterHints("", time.Now()); !spec.IsEmpty() {
		t.Errorf("empty query produced %+v", spec)
	}
	spec := ParseFilterHints("transformers for protein design", time.Now())
	if !spec.IsEmpty() {
		t.Errorf("unrecognized query produced %+v", spec)
	}
	if got := spec.Merge(types.FilterSpec{MinYear: types.IntPtr(2000)}); *got.MinYear != 2000 {
		t.Errorf("Merge = %+v", got)
	}
}
