// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-buddy/pkg/types"
)

type stubBackend struct {
	name    types.Source
	records []types.PaperRecord
	err     error
}

func (s stubBackend) Name() types.Source { return s.name }

func (s stubBackend) Search(context.Context, string, int) ([]types.PaperRecord, error) {
	return s.records, s.err
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"source error", &Error{Source: types.SourceArxiv, Kind: KindStatus, Status: 503}, KindStatus},
		{"wrapped source error", fmt.Errorf("outer: %w", &Error{Kind: KindParse}), KindParse},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), KindCanceled},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"other", errors.New("connection refused"), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Source: types.SourcePubMed, Kind: KindStatus, Status: 502, Err: errors.New("bad gateway")}
	assert.Equal(t, "PubMed: status (HTTP 502): bad gateway", err.Error())

	err = &Error{Source: types.SourceArxiv, Kind: KindParse, Err: ErrEmptyQuery}
	assert.Equal(t, "arXiv: parse: empty query", err.Error())
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchOrEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := stubBackend{name: types.SourceSemanticScholar, err: &Error{Kind: KindRateLimited, Err: ErrRateLimited}}
	got := SearchOrEmpty(context.Background(), failing, "q", 5, logger)
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "source search failed")
	assert.Contains(t, buf.String(), "kind=rate_limited")

	ok := stubBackend{name: types.SourceArxiv, records: []types.PaperRecord{{ID: "arxiv:1", Title: "T"}}}
	assert.Len(t, SearchOrEmpty(context.Background(), ok, "q", 5, nil), 1)
}

func TestFinalize(t *testing.T) {
	in := []types.PaperRecord{
		{ID: "a", Title: "  Spaced \n  Title ", Abstract: "  body  ", Citations: -3},
		{ID: "b", Title: " \t "},
		{ID: "c", Title: "Kept"},
	}
	out := finalize(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Spaced Title", out[0].Title)
	assert.Equal(t, "body", out[0].Abstract)
	assert.Equal(t, 0, out[0].Citations)
	assert.Equal(t, "c", out[1].ID)
}

func TestLimitOrDefault(t *testing.T) {
	assert.Equal(t, DefaultLimit, limitOrDefault(0))
	assert.Equal(t, DefaultLimit, limitOrDefault(-1))
	assert.Equal(t, 25, limitOrDefault(25))
}
