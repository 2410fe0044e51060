// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent runs a fixed multi-step research task: parse intent,
// search, rank, summarize and log. Each step is recorded in the report
// whether it succeeded or not.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-buddy/internal/engine"
	"github.com/pdiddy/research-buddy/internal/llm"
	"github.com/pdiddy/research-buddy/internal/store"
	"github.com/pdiddy/research-buddy/pkg/types"
)

// Step names, in execution order.
const (
	StepIntent  = "Intent Parsing"
	StepSearch  = "Paper Search"
	StepRank    = "Paper Ranking"
	StepSummary = "Summary Generation"
	StepHistory = "History Logging"
)

const (
	searchLimit = 50
	rankPool    = 20
	topPapers   = 10
)

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StatusCompleted StepStatus = "completed"
	StatusDegraded  StepStatus = "degraded" // finished on a fallback
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Step records one pipeline stage.
type Step struct {
	Name    string        `yaml:"name"`
	Status  StepStatus    `yaml:"status"`
	Detail  string        `yaml:"detail,omitempty"`
	Elapsed time.Duration `yaml:"elapsed"`
}

// Report is the full record of a research task.
type Report struct {
	ID         uuid.UUID           `yaml:"id"`
	Task       string              `yaml:"task"`
	CreatedAt  time.Time           `yaml:"created_at"`
	Parameters llm.QueryParameters `yaml:"parameters"`
	Steps      []Step              `yaml:"steps"`

	// Papers are every deduplicated record found; Ranked are the top
	// entries by composite score.
	Papers  []types.PaperRecord  `yaml:"papers"`
	Ranked  []types.RankedResult `yaml:"ranked"`
	Summary string               `yaml:"summary"`
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Researcher is the part of the engine the agent drives.
type Researcher interface {
	Ingest(ctx context.Context, query string, perSourceLimit int) (engine.IngestResult, error)
	Rank(ctx context.Context, query string, k int, filters types.FilterSpec) ([]types.RankedResult, error)
}

// HistoryLogger records finished tasks.
type HistoryLogger interface {
	LogQuery(ctx context.Context, q store.QueryLog) error
}

// Agent executes research tasks. LLM and History may be nil.
type Agent struct {
	Engine  Researcher
	LLM     llm.Client
	History HistoryLogger
	Logger  *slog.Logger

	// Progress receives one line per finished step. Nil discards.
	Progress io.Writer

	Now func() time.Time
}

// Run executes the five steps in order. A failed step is recorded and
// later steps run on whatever earlier steps produced.
func (a *Agent) Run(ctx context.Context, task string) *Report {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	w := a.Progress
	if w == nil {
		w = io.Discard
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rep := &Report{ID: uuid.New(), Task: strings.TrimSpace(task), CreatedAt: now()}

	record := func(name string, run func() (StepStatus, string)) {
		start := time.Now()
		status, detail := run()
		step := Step{Name: name, Status: status, Detail: detail, Elapsed: time.Since(start)}
		rep.Steps = append(rep.Steps, step)
		fmt.Fprintf(w, "[%d/5] %s: %s", len(rep.Steps), name, status)
		if detail != "" {
			fmt.Fprintf(w, " (%s)", detail)
		}
		fmt.Fprintln(w)
		logger.Info("agent step", "task_id", rep.ID.String(), "step", name, "status", string(status), "elapsed", step.Elapsed)
	}

	query := rep.Task
	record(StepIntent, func() (StepStatus, string) {
		params, err := llm.RefineQuery(ctx, a.LLM, rep.Task)
		rep.Parameters = params
		query = params.SearchText(rep.Task)
		switch {
		case a.LLM == nil:
			return StatusDegraded, "no language model, searching the task as typed"
		case err != nil:
			return StatusDegraded, fmt.Sprintf("refinement failed: %v", err)
		}
		return StatusCompleted, fmt.Sprintf("refined query %q", query)
	})

	var ingest engine.IngestResult
	record(StepSearch, func() (StepStatus, string) {
		var err error
		ingest, err = a.Engine.Ingest(ctx, query, searchLimit)
		rep.Papers = ingest.Records
		if err != nil {
			return StatusFailed, err.Error()
		}
		return StatusCompleted, fmt.Sprintf("%d papers; %s", len(ingest.Records), ingest.Outcome.Summary())
	})

	record(StepRank, func() (StepStatus, string) {
		if len(rep.Papers) == 0 {
			return StatusSkipped, "no papers to rank"
		}
		ranked, err := a.Engine.Rank(ctx, query, min(rankPool, len(rep.Papers)), types.FilterSpec{})
		if err != nil {
			return StatusFailed, err.Error()
		}
		if len(ranked) > topPapers {
			ranked = ranked[:topPapers]
		}
		rep.Ranked = ranked
		return StatusCompleted, fmt.Sprintf("top %d by similarity, citations and recency", len(ranked))
	})

	record(StepSummary, func() (StepStatus, string) {
		if len(rep.Ranked) == 0 {
			return StatusSkipped, "no ranked papers"
		}
		papers := make([]types.PaperRecord, len(rep.Ranked))
		for i, r := range rep.Ranked {
			papers[i] = r.Record
		}
		summary, err := (&llm.Summarizer{Client: a.LLM}).ResearchReport(ctx, rep.Task, papers)
		rep.Summary = summary
		switch {
		case err != nil && summary == "":
			return StatusFailed, err.Error()
		case err != nil:
			return StatusDegraded, fmt.Sprintf("extractive summary, model failed: %v", err)
		case a.LLM == nil:
			return StatusDegraded, "extractive summary"
		}
		return StatusCompleted, ""
	})

	record(StepHistory, func() (StepStatus, string) {
		if a.History == nil {
			return StatusSkipped, "no history store"
		}
		q := store.QueryLog{
			Query:            rep.Task,
			ResultsCount:     len(rep.Ranked),
			SourcesResponded: ingest.Outcome.Summary(),
		}
		if query != rep.Task {
			q.RefinedQuery = query
		}
		if err := a.History.LogQuery(ctx, q); err != nil {
			return StatusFailed, err.Error()
		}
		return StatusCompleted, ""
	})

	return rep
}

// WriteReport marshals rep to YAML at path, creating parent directories.
func WriteReport(path string, rep *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &rep, nil
}
