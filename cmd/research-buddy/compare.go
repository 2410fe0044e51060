// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/llm"
)

var compareCmd = &cobra.Command{
	Use:   "compare <id> <id>",
	Short: "Compare two stored papers with the language model",
	Long: `Compare loads two papers from the local library (IDs as printed by
"papers") and asks the configured language model for their common theme,
key differences and complementary insights. It needs llm.provider set.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	first, err := a.store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	second, err := a.store.Get(ctx, args[1])
	if err != nil {
		return err
	}

	s := &llm.Summarizer{Client: a.engine.LLM}
	out, err := s.Compare(ctx, first, second)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\nvs\n%s\n\n%s\n", first.Title, second.Title, out)
	return nil
}
