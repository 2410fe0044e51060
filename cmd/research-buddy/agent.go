// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-buddy/internal/agent"
)

var agentCmd = &cobra.Command{
	Use:   "agent [task]",
	Short: "Run a multi-step research task and print a markdown report",
	Long: `Agent parses the task, searches every source (50 results each), ranks
the papers, writes a research summary with the configured language model
(or an extractive fallback), and logs the task in the history. The report
is printed as markdown and saved as YAML under <data-dir>/reports/.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().String("save", "", "report YAML path (default <data-dir>/reports/<id>.yaml)")
	agentCmd.Flags().Bool("no-save", false, "do not write the YAML report")

	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	savePath, _ := cmd.Flags().GetString("save")
	noSave, _ := cmd.Flags().GetBool("no-save")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ag := &agent.Agent{
		Engine:   a.engine,
		LLM:      a.engine.LLM,
		History:  a.store,
		Logger:   logger,
		Progress: os.Stderr,
	}
	ctx := context.Background()
	if err := preflight(ctx, a.engine.Embedder); err != nil {
		return err
	}
	rep := ag.Run(ctx, strings.Join(args, " "))
	fmt.Print(agent.Format(rep))

	if !noSave {
		if savePath == "" {
			savePath = filepath.Join(a.cfg.DataDir, "reports", rep.ID.String()+".yaml")
		}
		if err := agent.WriteReport(savePath, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report saved to %s\n", savePath)
	}
	if rep.Failed() {
		return fmt.Errorf("research task finished with failed steps")
	}
	return nil
}
