// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/answer"
	"github.com/pdiddy/research-buddy/internal/engine"
	"github.com/pdiddy/research-buddy/internal/llm"
	"github.com/pdiddy/research-buddy/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a research question and get ranked, citation-ready results",
	Long: `Ask reads filter phrases from the question ("recent", "after 2020",
"between 2018 and 2022", "highly cited"), optionally refines it with the
configured language model, searches every source, and answers with the
best-ranked papers. Explicit filter flags override phrases in the question.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("refine", false, "restructure the question with the language model before searching")
	askCmd.Flags().Bool("no-hints", false, "ignore filter phrases in the question")
	askCmd.Flags().Int("limit", 0, "results requested from each source (default from config)")
	askCmd.Flags().IntP("top", "k", 0, "results shown (default results_shown, 5)")
	askCmd.Flags().String("summarize", "", "summarize each shown paper: concise, detailed or key-points")
	askCmd.Flags().String("session", "", "session ID grouping search history (default: new per call)")
	addFilterFlags(askCmd)

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	refine, _ := cmd.Flags().GetBool("refine")
	noHints, _ := cmd.Flags().GetBool("no-hints")
	limit, _ := cmd.Flags().GetInt("limit")
	top, _ := cmd.Flags().GetInt("top")
	summarize, _ := cmd.Flags().GetString("summarize")
	session, _ := cmd.Flags().GetString("session")

	var style llm.Style
	if summarize != "" {
		s, err := llm.ParseStyle(summarize)
		if err != nil {
			return err
		}
		style = s
	}

	if !llm.IsResearchQuery(question) {
		fmt.Fprintln(os.Stderr, "That doesn't look like a research question; searching anyway.")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if limit <= 0 {
		limit = a.cfg.Sources.PerSourceLimit
	}
	if top <= 0 {
		top = a.cfg.ResultsShown
	}
	if session == "" {
		session = uuid.NewString()
	}

	ctx := context.Background()
	if err := preflight(ctx, a.engine.Embedder); err != nil {
		return err
	}
	ans, err := a.engine.Ask(ctx, question, engine.AskOptions{
		Filters:        filtersFromFlags(cmd),
		NoHints:        noHints,
		Refine:         refine,
		PerSourceLimit: limit,
		TopK:           top,
		SessionID:      session,
	})
	if err != nil {
		if len(ans.Ingest.Outcome.Reports) > 0 {
			fmt.Fprintln(os.Stderr, ans.Ingest.Outcome.Summary())
		}
		return err
	}

	opts := answer.Options{Shown: top, NoColor: noColor()}
	if style != "" {
		opts.Summaries = summarizeResults(ctx, a.engine.LLM, ans, style)
	}
	answer.Render(os.Stdout, ans, opts)
	return nil
}

func summarizeResults(ctx context.Context, client llm.Client, ans engine.Answer, style llm.Style) map[string]string {
	records := make([]types.PaperRecord, len(ans.Results))
	for i, r := range ans.Results {
		records[i] = r.Record
	}
	s := &llm.Summarizer{Client: client}
	out := make(map[string]string, len(records))
	for _, b := range s.SummarizeBatch(ctx, records, style, len(records)) {
		if b.Err != nil {
			logger.Warn("summary failed", "paper", b.ID, "error", b.Err)
			continue
		}
		out[b.ID] = b.Summary
	}
	return out
}
