// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/search"
	"github.com/pdiddy/research-buddy/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank [query]",
	Short: "Rank indexed papers against a query",
	Long: `Rank embeds the query and scores the nearest indexed papers by
0.6 x similarity + 0.3 x citations + 0.1 x recency. It does not contact the
sources; run "search" first or pass --from-file with a saved search, whose
results are indexed before ranking.`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntP("top", "k", 10, "number of results")
	rankCmd.Flags().String("from-file", "", "saved search YAML written by search --save")
	rankCmd.Flags().Bool("json", false, "output results as JSON")
	addFilterFlags(rankCmd)

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("top")
	fromFile, _ := cmd.Flags().GetString("from-file")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	query := strings.Join(args, " ")
	var filters types.FilterSpec

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()
	if err := preflight(ctx, a.engine.Embedder); err != nil {
		return err
	}

	if fromFile != "" {
		qf, err := search.ReadQueryFile(fromFile)
		if err != nil {
			return err
		}
		if query == "" {
			query = qf.Query.Text
		}
		filters = qf.Query.Filters
		n, err := a.engine.IndexRecords(ctx, qf.Results)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Fprintf(os.Stderr, "indexed %d papers from %s\n", n, fromFile)
		}
	}
	if query == "" {
		return search.ErrEmptyQuery
	}
	filters = filters.Merge(filtersFromFlags(cmd))

	results, err := a.engine.Rank(ctx, query, k, filters)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Println("No indexed papers match. Run \"research-buddy search\" first.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-3s  %-6s  %-5s  %-5s  %-5s  %-50s  %s\n",
		"#", "Score", "Sim", "Cite", "Rec", "Title", "Year")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for i, r := range results {
		title := r.Record.Title
		if len([]rune(title)) > 50 {
			title = string([]rune(title)[:47]) + "..."
		}
		year := "-"
		if r.Record.Year != nil {
			year = fmt.Sprintf("%d", *r.Record.Year)
		}
		fmt.Fprintf(os.Stdout, "%-3d  %.3f   %.2f   %.2f   %.2f   %-50s  %s\n",
			i+1, r.FinalScore, r.Similarity, r.CitationScore, r.RecencyScore, title, year)
	}
	fmt.Fprintf(os.Stdout, "\n%d results (%s)\n", len(results), filters.Summary())
	return nil
}
