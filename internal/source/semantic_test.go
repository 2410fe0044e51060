// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-buddy/internal/httputil"
	"github.com/pdiddy/research-buddy/pkg/types"
)

const semanticJSON = `{"total":2,"offset":0,"data":[
 {"paperId":"abc123","title":"Graph Attention Networks","abstract":"We present GATs.",
  "year":2018,"venue":"ICLR","citationCount":9000,"url":"https://www.semanticscholar.org/paper/abc123",
  "openAccessPdf":{"url":"https://arxiv.org/pdf/1710.10903"},"fieldsOfStudy":["Computer Science"],
  "authors":[{"authorId":"1","name":"Petar Velickovic"},{"authorId":"2","name":"Guillem Cucurull"}]},
 {"paperId":"def456","title":"Untitled Venue Paper","abstract":null,"year":null,"venue":"",
  "citationCount":null,"url":null,"openAccessPdf":null,"fieldsOfStudy":null,"authors":[]}
]}`

func TestSemanticSearch(t *testing.T) {
	var gotQuery, gotFields, gotLimit string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotFields = r.URL.Query().Get("fields")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, semanticJSON)
	}))
	defer ts.Close()

	b := &SemanticScholarBackend{Client: ts.Client(), BaseURL: ts.URL}
	records, err := b.Search(context.Background(), "graph attention", 7)
	require.NoError(t, err)

	assert.Equal(t, "graph attention", gotQuery)
	assert.Equal(t, semanticFields, gotFields)
	assert.Equal(t, "7", gotLimit)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "s2:abc123", first.ID)
	assert.Equal(t, "Graph Attention Networks", first.Title)
	assert.Equal(t, "Petar Velickovic, Guillem Cucurull", first.Authors)
	require.NotNil(t, first.Year)
	assert.Equal(t, 2018, *first.Year)
	assert.Equal(t, "ICLR", first.Venue)
	assert.Equal(t, 9000, first.Citations)
	assert.Equal(t, "https://arxiv.org/pdf/1710.10903", first.PDFURL)
	assert.Equal(t, []string{"Computer Science"}, first.Fields)
	assert.Equal(t, types.SourceSemanticScholar, first.Source)

	second := records[1]
	assert.Nil(t, second.Year)
	assert.Equal(t, 0, second.Citations)
	assert.Equal(t, "", second.Abstract)
	assert.Equal(t, "", second.PDFURL)
	assert.Equal(t, "Semantic Scholar", second.Venue, "empty venue falls back to the source name")
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
			}))
			defer ts.Close()

			b := &SemanticScholarBackend{Client: ts.Client(), BaseURL: ts.URL, APIKey: tt.apiKey}
			records, err := b.Search(context.Background(), "test", 5)
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.Equal(t, tt.apiKey, got)
		})
	}
}

func TestSemanticSearchRetriesOnceAfterRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, semanticJSON)
	}))
	defer ts.Close()

	b := &SemanticScholarBackend{
		Client:  ts.Client(),
		BaseURL: ts.URL,
		Policy:  httputil.RetryPolicy{Backoff: 5 * time.Millisecond},
	}
	records, err := b.Search(context.Background(), "test", 5)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSemanticSearchRateLimitExhausted(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	b := &SemanticScholarBackend{Client: ts.Client(), BaseURL: ts.URL}
	_, err := b.Search(context.Background(), "test", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, KindRateLimited, Classify(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSemanticSearchMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [`)
	}))
	defer ts.Close()

	b := &SemanticScholarBackend{Client: ts.Client(), BaseURL: ts.URL}
	_, err := b.Search(context.Background(), "test", 5)
	assert.Equal(t, KindParse, Classify(err))
}
