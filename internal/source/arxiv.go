// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"

	"github.com/pdiddy/research-buddy/internal/httputil"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// DefaultArxivURL is the arXiv search endpoint.
const DefaultArxivURL = "https://export.arxiv.org/api/query"

// arXiv asks clients to keep three seconds between calls.
const (
	arxivInterval = 3 * time.Second
	arxivBackoff  = 3 * time.Second
)

// ArxivBackend queries the arXiv Atom API.
type ArxivBackend struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	Policy    httputil.RetryPolicy
}

// NewArxiv returns an arXiv backend paced to the API's published limits.
func NewArxiv(client *http.Client, cfg types.SourcesConfig) *ArxivBackend {
	return &ArxivBackend{
		Client:    client,
		BaseURL:   DefaultArxivURL,
		UserAgent: cfg.UserAgent,
		Policy: httputil.RetryPolicy{
			Backoff: arxivBackoff,
			Limiter: httputil.NewLimiter(arxivInterval),
		},
	}
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() types.Source { return types.SourceArxiv }

// Search queries arXiv sorted by relevance.
func (b *ArxivBackend) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, &Error{Source: types.SourceArxiv, Kind: KindParse, Err: ErrEmptyQuery}
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limitOrDefault(limit))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	base := b.BaseURL
	if base == "" {
		base = DefaultArxivURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := do(ctx, clientOrDefault(b.Client), req, types.SourceArxiv, b.Policy)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parser atom.Parser
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, parseError(types.SourceArxiv, fmt.Errorf("parsing arXiv feed: %w", err))
	}

	records := make([]types.PaperRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if r, ok := arxivRecord(entry); ok {
			records = append(records, r)
		}
	}
	return finalize(records), nil
}

func arxivRecord(entry *atom.Entry) (types.PaperRecord, bool) {
	arxivID := extractArxivID(entry.ID)
	if arxivID == "" {
		return types.PaperRecord{}, false
	}

	r := types.PaperRecord{
		ID:       "arxiv:" + arxivID,
		Title:    entry.Title,
		Abstract: entry.Summary,
		Venue:    "arXiv",
		URL:      entry.ID,
		Source:   types.SourceArxiv,
	}

	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a != nil {
			names = append(names, a.Name)
		}
	}
	r.Authors = types.JoinAuthors(names)

	if entry.PublishedParsed != nil {
		r.Year = types.YearOf(entry.PublishedParsed.Year())
	} else if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		r.Year = types.YearOf(t.Year())
	}

	for _, l := range entry.Links {
		if l == nil {
			continue
		}
		if l.Title == "pdf" || l.Type == "application/pdf" {
			r.PDFURL = l.Href
		}
	}

	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			r.Fields = append(r.Fields, c.Term)
		}
	}
	return r, true
}

// buildArxivQuery turns free text into an all-fields conjunction.
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "all:" + t
	}
	return strings.Join(parts, " AND ")
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
