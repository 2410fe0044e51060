// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"fmt"
	"strings"
	"time"
)

// Format renders rep as a markdown document.
func Format(rep *Report) string {
	var b strings.Builder

	b.WriteString("# Research Report\n\n")
	fmt.Fprintf(&b, "## Task\n\n%s\n\n", rep.Task)

	b.WriteString("## Execution Steps\n\n")
	for i, s := range rep.Steps {
		fmt.Fprintf(&b, "### Step %d: %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "Status: %s (%s)\n", s.Status, s.Elapsed.Round(time.Millisecond))
		if s.Detail != "" {
			fmt.Fprintf(&b, "\n%s\n", s.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Key Findings\n\n")
	if strings.TrimSpace(rep.Summary) == "" {
		b.WriteString("No summary available.\n\n")
	} else {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(rep.Summary))
	}

	fmt.Fprintf(&b, "## Top Papers (%d)\n\n", len(rep.Ranked))
	for i, r := range rep.Ranked {
		p := r.Record
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, p.Title)
		authors := p.Authors
		if authors == "" {
			authors = "Unknown"
		}
		year := "N/A"
		if p.Year != nil {
			year = fmt.Sprintf("%d", *p.Year)
		}
		fmt.Fprintf(&b, "- Authors: %s\n", authors)
		fmt.Fprintf(&b, "- Year: %s | Citations: %d | Score: %.3f\n", year, p.Citations, r.FinalScore)
		if p.URL != "" {
			fmt.Fprintf(&b, "- [Link](%s)\n", p.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
