// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer renders engine answers for the terminal.
package answer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/research-buddy/internal/embedding"
	"github.com/pdiddy/research-buddy/internal/engine"
	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/internal/search"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// DefaultShown is how many results Render lists when Options.Shown is zero.
const DefaultShown = 5

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
)

// Options controls rendering.
type Options struct {
	Shown   int
	NoColor bool

	// Summaries maps record IDs to a short summary printed under the entry.
	Summaries map[string]string
}

type styles struct {
	heading lipgloss.Style
	title   lipgloss.Style
	meta    lipgloss.Style
	score   lipgloss.Style
	link    lipgloss.Style
	warn    lipgloss.Style
}

// newStyles binds styles to w so color detection follows the destination,
// not os.Stdout. NoColor leaves every style empty.
func newStyles(w io.Writer, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	r := lipgloss.NewRenderer(w)
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(colorAccent),
		title:   r.NewStyle().Bold(true),
		meta:    r.NewStyle().Foreground(colorDim).Italic(true),
		score:   r.NewStyle().Foreground(colorGreen),
		link:    r.NewStyle().Foreground(colorAccent).Underline(true),
		warn:    r.NewStyle().Foreground(colorWarn),
	}
}

// Render writes a conversational answer: the top results with match
// percentage, citations and links, followed by the source and filter
// summaries.
func Render(w io.Writer, ans engine.Answer, opts Options) {
	st := newStyles(w, opts.NoColor)
	shown := opts.Shown
	if shown <= 0 {
		shown = DefaultShown
	}
	results := ans.Results
	if len(results) > shown {
		results = results[:shown]
	}

	if ans.SearchText != "" && ans.SearchText != ans.Question {
		fmt.Fprintln(w, st.meta.Render(fmt.Sprintf("Searched for: %s", ans.SearchText)))
	}
	fmt.Fprintln(w, st.heading.Render(fmt.Sprintf("Found %d highly relevant papers:", len(results))))
	fmt.Fprintln(w)

	for i, r := range results {
		renderResult(w, st, i+1, r, opts.Summaries[r.Record.ID])
	}

	for _, rep := range ans.Ingest.Outcome.Reports {
		if rep.Err != nil {
			fmt.Fprintln(w, st.warn.Render(fmt.Sprintf("! %s unavailable (%s)", rep.Source, rep.Kind)))
		}
	}
	footer := ans.Ingest.Outcome.Summary()
	if n := ans.Ingest.Removed; n > 0 {
		footer += fmt.Sprintf("; %d duplicates removed", n)
	}
	fmt.Fprintln(w, st.meta.Render(footer))
	fmt.Fprintln(w, st.meta.Render("Filters: "+ans.Filters.Summary()))
}

func renderResult(w io.Writer, st styles, n int, r types.RankedResult, summary string) {
	p := r.Record
	authors := p.Authors
	if authors == "" {
		authors = "Unknown authors"
	}
	year := "N/A"
	if p.Year != nil {
		year = fmt.Sprintf("%d", *p.Year)
	}
	venue := p.Venue
	if venue == "" {
		venue = "N/A"
	}

	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%d. %s", n, p.Title)))
	fmt.Fprintln(w, "   "+st.meta.Render(fmt.Sprintf("%s (%s)", authors, year)))
	fmt.Fprintf(w, "   %s | %d citations | %s\n",
		st.score.Render(fmt.Sprintf("%.0f%% match", r.Similarity*100)), p.Citations, venue)

	var links []string
	if p.URL != "" {
		links = append(links, st.link.Render(p.URL))
	}
	if p.PDFURL != "" {
		links = append(links, "PDF "+st.link.Render(p.PDFURL))
	}
	if len(links) > 0 {
		fmt.Fprintln(w, "   "+strings.Join(links, " | "))
	}
	if summary != "" {
		for _, line := range strings.Split(strings.TrimSpace(summary), "\n") {
			fmt.Fprintln(w, "   > "+line)
		}
	}
	fmt.Fprintln(w)
}

// RenderError writes one human-readable line for err.
func RenderError(w io.Writer, err error) {
	fmt.Fprintln(w, Message(err))
}

// Message maps known failures to guidance and falls back to err's text.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, search.ErrEmptyQuery):
		return "Please type a research question."
	case errors.Is(err, index.ErrDimensionMismatch), errors.Is(err, index.ErrModelMismatch),
		errors.Is(err, index.ErrUnsupportedVersion):
		return "The paper index was built with a different embedding model (run \"research-buddy index reset\"): " + err.Error()
	case errors.Is(err, embedding.ErrOllamaUnavailable), errors.Is(err, embedding.ErrModelNotPulled):
		return "The embedding model is unavailable: " + err.Error()
	case errors.Is(err, search.ErrNoResults):
		return "No papers found. Try a different query or loosen the filters (" + err.Error() + ")."
	}
	return "Something went wrong: " + err.Error()
}
