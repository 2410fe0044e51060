// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans a query out to every configured source, merges the
// partial results, removes duplicates, and applies filter predicates.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/research-buddy/internal/source"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// DefaultTimeout bounds a whole aggregation when Aggregator.Timeout is zero.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNoResults means no source produced a record for the query.
	// Outcome.Err wraps it with per-source reasons when every source failed.
	ErrNoResults = errors.New("no results")

	ErrEmptyQuery = errors.New("query is empty: provide a research question")
	ErrNoBackends = errors.New("no search backends configured")
)

// Status distinguishes a successful empty answer from a total failure.
type Status int

const (
	StatusOK     Status = iota // at least one record
	StatusEmpty                // some source responded, none had records
	StatusFailed               // every source errored
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// SourceReport records what one backend did during an aggregation.
type SourceReport struct {
	Source  types.Source
	Count   int
	Err     error
	Kind    source.ErrorKind
	Elapsed time.Duration
}

// OK reports whether the source answered without error.
func (r SourceReport) OK() bool { return r.Err == nil }

// Outcome is the merged result of one aggregation. Reports follow the
// configured backend order.
type Outcome struct {
	Records []types.PaperRecord
	Reports []SourceReport
}

// Responded counts sources that answered without error, including those
// that answered with zero records.
func (o Outcome) Responded() int {
	n := 0
	for _, r := range o.Reports {
		if r.OK() {
			n++
		}
	}
	return n
}

// Summary renders the partial-failure line, e.g. "2 of 3 sources responded".
func (o Outcome) Summary() string {
	return fmt.Sprintf("%d of %d sources responded", o.Responded(), len(o.Reports))
}

func (o Outcome) Status() Status {
	switch {
	case len(o.Records) > 0:
		return StatusOK
	case o.Responded() > 0:
		return StatusEmpty
	default:
		return StatusFailed
	}
}

// Err returns nil when records were found and an error matching
// ErrNoResults otherwise.
func (o Outcome) Err() error {
	switch o.Status() {
	case StatusOK:
		return nil
	case StatusEmpty:
		return ErrNoResults
	}
	reasons := make([]string, 0, len(o.Reports))
	for _, r := range o.Reports {
		reasons = append(reasons, fmt.Sprintf("%s: %s", r.Source, r.Kind))
	}
	return fmt.Errorf("%w: all sources failed (%s)", ErrNoResults, strings.Join(reasons, ", "))
}

// Aggregator queries every backend concurrently under one shared deadline.
// A failing backend never cancels its siblings.
type Aggregator struct {
	Backends []source.Backend
	Timeout  time.Duration
	Logger   *slog.Logger

	// Progress receives one warning line per failed source. Nil discards.
	Progress io.Writer
}

// SearchAll fans the query out and concatenates the partial results in
// backend order, preserving each backend's own ordering. Backends still
// running when the deadline passes are dropped and reported as timed out.
func (a *Aggregator) SearchAll(ctx context.Context, query string, perSourceLimit int) (Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return Outcome{}, ErrEmptyQuery
	}
	if len(a.Backends) == 0 {
		return Outcome{}, ErrNoBackends
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type backendResult struct {
		idx     int
		records []types.PaperRecord
		err     error
		elapsed time.Duration
	}

	ch := make(chan backendResult, len(a.Backends))
	var wg sync.WaitGroup

	for i, b := range a.Backends {
		wg.Add(1)
		go func(i int, b source.Backend) {
			defer wg.Done()
			start := time.Now()
			records, err := b.Search(actx, query, perSourceLimit)
			ch <- backendResult{idx: i, records: records, err: err, elapsed: time.Since(start)}
		}(i, b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	parts := make([][]types.PaperRecord, len(a.Backends))
	reports := make([]SourceReport, len(a.Backends))
	received := make([]bool, len(a.Backends))

	accept := func(br backendResult) {
		received[br.idx] = true
		rep := SourceReport{Source: a.Backends[br.idx].Name(), Elapsed: br.elapsed}
		if br.err != nil {
			rep.Err = br.err
			rep.Kind = source.Classify(br.err)
		} else {
			parts[br.idx] = br.records
			rep.Count = len(br.records)
		}
		reports[br.idx] = rep
	}

collect:
	for {
		select {
		case br, ok := <-ch:
			if !ok {
				break collect
			}
			accept(br)
		case <-actx.Done():
			// Keep whatever already arrived, drop the stragglers.
			for {
				select {
				case br, ok := <-ch:
					if !ok {
						break collect
					}
					accept(br)
				default:
					break collect
				}
			}
		}
	}

	for i, got := range received {
		if got {
			continue
		}
		err := fmt.Errorf("dropped at aggregation deadline: %w", actx.Err())
		reports[i] = SourceReport{
			Source:  a.Backends[i].Name(),
			Err:     err,
			Kind:    source.Classify(err),
			Elapsed: timeout,
		}
	}

	w := a.Progress
	if w == nil {
		w = io.Discard
	}
	var all []types.PaperRecord
	for i, rep := range reports {
		if rep.Err != nil {
			fmt.Fprintf(w, "warning: source %s failed: %v\n", rep.Source, rep.Err)
			if a.Logger != nil {
				a.Logger.Warn("source search failed",
					"source", string(rep.Source), "kind", string(rep.Kind), "error", rep.Err)
			}
			continue
		}
		if a.Logger != nil {
			a.Logger.Debug("source responded",
				"source", string(rep.Source), "count", rep.Count, "elapsed", rep.Elapsed)
		}
		all = append(all, parts[i]...)
	}

	return Outcome{Records: all, Reports: reports}, nil
}
