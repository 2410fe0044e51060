// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// FormatTable writes records as a human-readable table to w, followed by
// the source summary line.
func FormatTable(out Outcome, removed int, w io.Writer) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		fmt.Fprintln(w, out.Summary())
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"#", "Title", "Authors", "Year", "Cites", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 116))

	for i, r := range out.Records {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6d  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), formatYear(r.Year), r.Citations, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Records))
	if removed > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", removed)
	}
	fmt.Fprintf(w, "; %s\n", out.Summary())
}

// FormatJSON writes records as indented JSON to w.
func FormatJSON(records []types.PaperRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func formatAuthors(authors string) string {
	names := strings.Split(authors, ", ")
	switch {
	case authors == "":
		return ""
	case len(names) == 1:
		return truncate(names[0], 20)
	default:
		return truncate(names[0], 14) + " et al."
	}
}

func formatYear(y *int) string {
	if y == nil {
		return ""
	}
	return fmt.Sprintf("%d", *y)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
