// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/pkg/types"
)

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("min-year", 0, "earliest publication year")
	f.Int("max-year", 0, "latest publication year")
	f.Int("min-citations", 0, "minimum citation count")
	f.Int("max-citations", 0, "maximum citation count")
	f.StringSlice("domain", nil, "domain tag substring, e.g. cs.CL or Medicine (repeatable)")
	f.StringSlice("keyword", nil, "keyword that must appear in title or abstract (repeatable, any matches)")
}

// filtersFromFlags builds a FilterSpec from the flags the user actually set.
func filtersFromFlags(cmd *cobra.Command) types.FilterSpec {
	var spec types.FilterSpec
	f := cmd.Flags()
	intFlag := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return types.IntPtr(v)
	}
	spec.MinYear = intFlag("min-year")
	spec.MaxYear = intFlag("max-year")
	spec.MinCitations = intFlag("min-citations")
	spec.MaxCitations = intFlag("max-citations")
	spec.Domains, _ = f.GetStringSlice("domain")
	spec.Keywords, _ = f.GetStringSlice("keyword")
	return spec
}
