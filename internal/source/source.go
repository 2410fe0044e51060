// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source wraps the external paper-search APIs (arXiv, Semantic
// Scholar, PubMed). Every backend maps its provider's schema into
// types.PaperRecord and reports failures as *Error values carrying an
// ErrorKind, so the aggregator can tell a rate limit from a timeout.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/pdiddy/research-buddy/internal/httputil"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// Backend searches a single paper API.
type Backend interface {
	Name() types.Source
	Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error)
}

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 10

// ErrorKind classifies why a backend produced no results.
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindStatus      ErrorKind = "status"
	KindParse       ErrorKind = "parse"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindCanceled    ErrorKind = "canceled"
)

// ErrRateLimited is wrapped when a source still answers 429 after the retry.
var ErrRateLimited = errors.New("rate limit exhausted")

// ErrEmptyQuery is returned for blank queries before any request is made.
var ErrEmptyQuery = errors.New("empty query")

// Error is a failure inside one backend.
type Error struct {
	Source types.Source
	Kind   ErrorKind
	Status int // HTTP status, when the failure was a response
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify returns the ErrorKind for err. It understands *Error, context
// errors, and net.Error timeouts; anything else is a transport error.
// A nil error has no kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return transportKind(err)
}

func transportKind(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

// SearchOrEmpty runs b.Search and never fails: any error is logged and an
// empty result returned. Use it where only the records matter.
func SearchOrEmpty(ctx context.Context, b Backend, query string, limit int, logger *slog.Logger) []types.PaperRecord {
	records, err := b.Search(ctx, query, limit)
	if err != nil {
		if logger != nil {
			logger.Warn("source search failed",
				"source", string(b.Name()), "kind", string(Classify(err)), "error", err)
		}
		return []types.PaperRecord{}
	}
	return records
}

// do sends req under policy and converts transport failures and non-200
// answers into *Error. The caller owns the returned body.
func do(ctx context.Context, client *http.Client, req *http.Request, src types.Source, policy httputil.RetryPolicy) (*http.Response, error) {
	resp, err := httputil.DoWithRetry(ctx, client, req, policy)
	if err != nil {
		return nil, &Error{Source: src, Kind: transportKind(err), Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, &Error{Source: src, Kind: KindRateLimited, Status: resp.StatusCode, Err: ErrRateLimited}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &Error{Source: src, Kind: KindStatus, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode))}
	}
	return resp, nil
}

func parseError(src types.Source, err error) error {
	return &Error{Source: src, Kind: KindParse, Err: err}
}

// finalize validates records at the adapter boundary: titles are
// whitespace-collapsed and records without a title are dropped.
func finalize(records []types.PaperRecord) []types.PaperRecord {
	out := make([]types.PaperRecord, 0, len(records))
	for _, r := range records {
		r.Title = collapseSpace(r.Title)
		if r.Title == "" {
			continue
		}
		r.Abstract = strings.TrimSpace(r.Abstract)
		if r.Citations < 0 {
			r.Citations = 0
		}
		out = append(out, r)
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
