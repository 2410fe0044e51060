// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-buddy/internal/httputil"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// DefaultSemanticURL is the Semantic Scholar paper search endpoint.
const DefaultSemanticURL = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,abstract,year,venue,citationCount,url,openAccessPdf,fieldsOfStudy"

// The unauthenticated tier shares a pool across all clients; a 429 there
// usually clears within a minute.
const (
	semanticInterval = time.Second
	semanticBackoff  = 60 * time.Second
)

// SemanticScholarBackend queries the Semantic Scholar graph API.
type SemanticScholarBackend struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	APIKey    string
	Policy    httputil.RetryPolicy
}

// NewSemanticScholar returns a Semantic Scholar backend using the key from cfg, if any.
func NewSemanticScholar(client *http.Client, cfg types.SourcesConfig) *SemanticScholarBackend {
	return &SemanticScholarBackend{
		Client:    client,
		BaseURL:   DefaultSemanticURL,
		UserAgent: cfg.UserAgent,
		APIKey:    cfg.SemanticScholarAPIKey,
		Policy: httputil.RetryPolicy{
			Backoff: semanticBackoff,
			Limiter: httputil.NewLimiter(semanticInterval),
		},
	}
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() types.Source { return types.SourceSemanticScholar }

// Search queries the Semantic Scholar paper search endpoint.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &Error{Source: types.SourceSemanticScholar, Kind: KindParse, Err: ErrEmptyQuery}
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(limitOrDefault(limit))},
		"fields": {semanticFields},
	}
	base := b.BaseURL
	if base == "" {
		base = DefaultSemanticURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := do(ctx, clientOrDefault(b.Client), req, types.SourceSemanticScholar, b.Policy)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, parseError(types.SourceSemanticScholar, fmt.Errorf("parsing Semantic Scholar response: %w", err))
	}

	records := make([]types.PaperRecord, 0, len(sr.Data))
	for _, paper := range sr.Data {
		records = append(records, paper.record())
	}
	return finalize(records), nil
}

func (p semanticPaper) record() types.PaperRecord {
	r := types.PaperRecord{
		ID:        "s2:" + p.PaperID,
		Title:     p.Title,
		Abstract:  p.Abstract,
		Year:      types.YearOf(p.Year),
		Venue:     p.Venue,
		Citations: p.CitationCount,
		URL:       p.URL,
		Source:    types.SourceSemanticScholar,
		Fields:    p.FieldsOfStudy,
	}
	if r.Venue == "" {
		r.Venue = string(types.SourceSemanticScholar)
	}
	if p.OpenAccessPDF != nil {
		r.PDFURL = p.OpenAccessPDF.URL
	}

	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	r.Authors = types.JoinAuthors(names)
	return r
}

// Semantic Scholar API JSON structures. Nullable fields decode to zero values.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string           `json:"paperId"`
	Title         string           `json:"title"`
	Abstract      string           `json:"abstract"`
	Year          int              `json:"year"`
	Venue         string           `json:"venue"`
	CitationCount int              `json:"citationCount"`
	URL           string           `json:"url"`
	OpenAccessPDF *semanticPDF     `json:"openAccessPdf"`
	FieldsOfStudy []string         `json:"fieldsOfStudy"`
	Authors       []semanticAuthor `json:"authors"`
}

type semanticPDF struct {
	URL string `json:"url"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}
