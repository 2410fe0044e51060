// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/research-buddy/internal/httputil"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// DefaultPubMedURL is the NCBI E-utilities base.
const DefaultPubMedURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// NCBI allows 3 requests per second without a key and 10 with one.
const (
	pubmedInterval        = 350 * time.Millisecond
	pubmedIntervalWithKey = 110 * time.Millisecond
	pubmedBackoff         = time.Second
)

// PubMedBackend queries PubMed through esearch (IDs) and efetch (records).
type PubMedBackend struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	APIKey    string
	Policy    httputil.RetryPolicy
}

// NewPubMed returns a PubMed backend paced for the presence or absence of an API key.
func NewPubMed(client *http.Client, cfg types.SourcesConfig) *PubMedBackend {
	interval := pubmedInterval
	if cfg.PubMedAPIKey != "" {
		interval = pubmedIntervalWithKey
	}
	return &PubMedBackend{
		Client:    client,
		BaseURL:   DefaultPubMedURL,
		UserAgent: cfg.UserAgent,
		APIKey:    cfg.PubMedAPIKey,
		Policy: httputil.RetryPolicy{
			Backoff: pubmedBackoff,
			Limiter: httputil.NewLimiter(interval),
		},
	}
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() types.Source { return types.SourcePubMed }

// Search finds PubMed IDs for query and fetches their article records.
func (b *PubMedBackend) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &Error{Source: types.SourcePubMed, Kind: KindParse, Err: ErrEmptyQuery}
	}

	ids, err := b.esearch(ctx, q, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []types.PaperRecord{}, nil
	}

	articles, err := b.efetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]types.PaperRecord, 0, len(articles))
	for _, a := range articles {
		records = append(records, a.record())
	}
	return finalize(records), nil
}

func (b *PubMedBackend) esearch(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(limit)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	resp, err := b.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, parseError(types.SourcePubMed, fmt.Errorf("parsing esearch response: %w", err))
	}

	ids := sr.ESearchResult.IDList
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (b *PubMedBackend) efetch(ctx context.Context, ids []string) ([]pubmedArticle, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	}
	resp, err := b.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, parseError(types.SourcePubMed, fmt.Errorf("parsing efetch response: %w", err))
	}
	return set.Articles, nil
}

func (b *PubMedBackend) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if b.APIKey != "" {
		params.Set("api_key", b.APIKey)
	}
	base := b.BaseURL
	if base == "" {
		base = DefaultPubMedURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	return do(ctx, clientOrDefault(b.Client), req, types.SourcePubMed, b.Policy)
}

// PubMed efetch XML structures (a subset of the PubmedArticleSet DTD).
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string        `xml:"MedlineCitation>PMID"`
	Article pubmedDetails `xml:"MedlineCitation>Article"`
	Mesh    []string      `xml:"MedlineCitation>MeshHeadingList>MeshHeading>DescriptorName"`
}

type pubmedDetails struct {
	Title    markup           `xml:"ArticleTitle"`
	Abstract []pubmedAbstract `xml:"Abstract>AbstractText"`
	Authors  []pubmedAuthor   `xml:"AuthorList>Author"`
	Journal  struct {
		Title   string        `xml:"Title"`
		PubDate pubmedPubDate `xml:"JournalIssue>PubDate"`
	} `xml:"Journal"`
}

type pubmedAbstract struct {
	Label string `xml:"Label,attr"`
	Body  string `xml:",innerxml"`
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

type pubmedPubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

// markup is element content that may contain inline tags such as <i> or <sup>.
type markup string

func (m *markup) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var inner struct {
		Body string `xml:",innerxml"`
	}
	if err := d.DecodeElement(&inner, &start); err != nil {
		return err
	}
	*m = markup(stripTags(inner.Body))
	return nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return collapseSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

func (a pubmedArticle) record() types.PaperRecord {
	r := types.PaperRecord{
		ID:     "pubmed:" + strings.TrimSpace(a.PMID),
		Title:  strings.TrimSuffix(string(a.Article.Title), "."),
		Venue:  strings.TrimSpace(a.Article.Journal.Title),
		Year:   a.Article.Journal.PubDate.year(),
		URL:    fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", strings.TrimSpace(a.PMID)),
		Source: types.SourcePubMed,
		Fields: a.Mesh,
	}
	if r.Venue == "" {
		r.Venue = string(types.SourcePubMed)
	}

	parts := make([]string, 0, len(a.Article.Abstract))
	for _, p := range a.Article.Abstract {
		text := stripTags(p.Body)
		if p.Label != "" {
			text = p.Label + ": " + text
		}
		parts = append(parts, text)
	}
	r.Abstract = strings.Join(parts, " ")

	names := make([]string, 0, len(a.Article.Authors))
	for _, au := range a.Article.Authors {
		switch {
		case au.CollectiveName != "":
			names = append(names, au.CollectiveName)
		case au.ForeName != "":
			names = append(names, au.ForeName+" "+au.LastName)
		default:
			names = append(names, au.LastName)
		}
	}
	r.Authors = types.JoinAuthors(names)
	return r
}

// year reads <Year>, falling back to the leading year of <MedlineDate>
// (e.g. "2019 Dec-2020 Jan").
func (d pubmedPubDate) year() *int {
	for _, s := range []string{d.Year, d.MedlineDate} {
		s = strings.TrimSpace(s)
		if len(s) < 4 {
			continue
		}
		if y, err := strconv.Atoi(s[:4]); err == nil {
			return types.YearOf(y)
		}
	}
	return nil
}
