// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/index"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent questions, or the searches of one session",
	RunE:  runHistory,
}

var papersCmd = &cobra.Command{
	Use:   "papers [substring]",
	Short: "List stored papers whose title or abstract contains a substring",
	Long: `Papers lists the local library, most cited first. With no argument it
lists everything up to --limit. Use "papers show <id>" for one record.`,
	RunE: runPapers,
}

var papersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored paper as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersShow,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or reset the embedding index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index size, dimension and library size",
	RunE:  runIndexStats,
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the embedding index (the paper library is kept)",
	Long: `Reset removes the index files. Run it after switching embedding models;
papers are re-embedded the next time a search returns them.`,
	RunE: runIndexReset,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of research-buddy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("research-buddy %s\n", version)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "rows to show")
	historyCmd.Flags().String("session", "", "show search history for this session instead")
	papersCmd.Flags().Int("limit", 20, "rows to show")

	papersCmd.AddCommand(papersShowCmd)
	indexCmd.AddCommand(indexStatsCmd, indexResetCmd)
	rootCmd.AddCommand(historyCmd, papersCmd, indexCmd, versionCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	session, _ := cmd.Flags().GetString("session")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	if session != "" {
		rows, err := a.store.RecentSearches(ctx, session, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Printf("%s  %-40s  %3d results  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Query, r.ResultsCount, r.Filters.Summary())
		}
		return nil
	}

	rows, err := a.store.RecentQueries(ctx, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No questions asked yet.")
		return nil
	}
	for _, r := range rows {
		q := r.Query
		if r.RefinedQuery != "" {
			q += " -> " + r.RefinedQuery
		}
		fmt.Printf("%s  %-60s  %3d results  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), q, r.ResultsCount, r.SourcesResponded)
	}
	return nil
}

func runPapers(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	total, err := a.store.Count(context.Background())
	if err != nil {
		return err
	}
	for _, r := range records {
		year := "----"
		if r.Year != nil {
			year = fmt.Sprintf("%d", *r.Year)
		}
		fmt.Printf("%-28s  %s  %6d  %s\n", r.ID, year, r.Citations, r.Title)
	}
	fmt.Printf("\n%d shown, %d in library\n", len(records), total)
	return nil
}

func runPapersShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.index.Stats()
	n, err := a.store.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("index:     %s\n", st.Dir)
	fmt.Printf("vectors:   %d\n", st.Count)
	fmt.Printf("dimension: %d\n", st.Dimension)
	fmt.Printf("model:     %s\n", st.Model)
	fmt.Printf("library:   %d papers\n", n)
	return nil
}

func runIndexReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := filepath.Join(cfg.DataDir, indexDirName)
	if err := index.Remove(dir); err != nil {
		return err
	}
	fmt.Printf("removed index in %s\n", dir)
	return nil
}
