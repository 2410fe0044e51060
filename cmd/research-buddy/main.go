// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-buddy CLI: multi-source
// paper search, local semantic ranking, and an autonomous research agent.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-buddy/internal/answer"
	"github.com/pdiddy/research-buddy/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// logger is configured in PersistentPreRunE from --verbose.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// rootCmd is the base command for the research-buddy CLI.
var rootCmd = &cobra.Command{
	Use:   "research-buddy",
	Short: "Find, rank and summarize research papers from arXiv, Semantic Scholar and PubMed",
	Long: `research-buddy searches arXiv, Semantic Scholar and PubMed concurrently,
merges and deduplicates the results, stores them in a local SQLite library,
and ranks them with a local embedding index by semantic similarity,
citations and recency.

Use "ask" for a conversational answer, "search" and "rank" for the raw
pipeline stages, and "agent" for a multi-step research report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./research-buddy.yaml or $XDG_CONFIG_HOME/research-buddy/research-buddy.yaml)")
	pf.String("data-dir", "", "directory holding papers.db and the index (default $XDG_DATA_HOME/research-buddy)")
	pf.BoolP("verbose", "v", false, "debug logging on stderr")
	pf.Bool("offline", false, "use the deterministic hash embedder instead of Ollama")
	pf.Bool("no-color", false, "disable styled output")

	_ = viper.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("offline", pf.Lookup("offline"))
	_ = viper.BindPFlag("no_color", pf.Lookup("no-color"))
}

func initConfig() {
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-buddy")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "research-buddy"))
	}

	viper.SetEnvPrefix("RESEARCH_BUDDY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		answer.RenderError(os.Stderr, err)
		os.Exit(1)
	}
}
