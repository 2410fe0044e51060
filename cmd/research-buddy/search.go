// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/engine"
	"github.com/pdiddy/research-buddy/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search arXiv, Semantic Scholar and PubMed for candidate papers",
	Long: `Search queries every enabled source concurrently, deduplicates the merged
results by normalized title, stores them in the local library, and adds
them to the embedding index. Sources that fail are reported and skipped.

Filters narrow the printed list; every result is still stored. Use --save
to write the query and results to a YAML file that "rank --from-file" reads.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "results requested from each source (default from config, 20)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write query and results to this YAML file")
	addFilterFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")
	filters := filtersFromFlags(cmd)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if limit <= 0 {
		limit = a.cfg.Sources.PerSourceLimit
	}
	ctx := context.Background()
	if err := preflight(ctx, a.engine.Embedder); err != nil {
		return err
	}

	res, err := a.engine.Ingest(ctx, query, limit)
	if err != nil && !engine.IsNoResults(err) {
		return err
	}
	records := search.ApplyFilters(res.Records, filters)

	if savePath != "" {
		params := search.QueryParams{Text: query, PerSourceLimit: limit, Filters: filters}
		qf := search.NewQueryFile(params, res.Outcome, records, res.Removed, time.Now())
		if werr := search.WriteQueryFile(savePath, qf); werr != nil {
			return werr
		}
		fmt.Fprintf(os.Stderr, "saved %d results to %s\n", len(records), savePath)
	}

	if jsonOutput {
		if ferr := search.FormatJSON(records, os.Stdout); ferr != nil {
			return ferr
		}
		return err
	}

	out := res.Outcome
	out.Records = records
	search.FormatTable(out, res.Removed, os.Stdout)
	if res.Batch.Total() > 0 {
		fmt.Fprintf(os.Stderr, "library: %d new, %d updated, %d skipped, %d failed; %d indexed\n",
			res.Batch.Stored, res.Batch.Updated, res.Batch.Skipped, res.Batch.Failed, res.Indexed)
	}
	return err
}
