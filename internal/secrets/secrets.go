// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API keys from a directory of plain-text files,
// one secret per file, falling back to environment variables. The filename
// is the key name and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// Key file names and the environment variables that back them.
const (
	SemanticScholarKey = "semantic-scholar-api-key"
	PubMedKey          = "pubmed-api-key"
	GeminiKey          = "gemini-api-key"
)

var envFallback = map[string]string{
	SemanticScholarKey: "SEMANTIC_SCHOLAR_API_KEY",
	PubMedKey:          "PUBMED_API_KEY",
	GeminiKey:          "GEMINI_API_KEY",
}

// Set holds the secrets found on disk.
type Set map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error. Unreadable files are reported on warn and skipped.
func Load(dir string, warn io.Writer) (Set, error) {
	if warn == nil {
		warn = io.Discard
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}

// Get returns the file value for name, or the matching environment
// variable when no file was found.
func (s Set) Get(name string) string {
	if v := s[name]; v != "" {
		return v
	}
	if env, ok := envFallback[name]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// Apply fills empty API key fields of cfg. Keys already set by the config
// file or flags win.
func (s Set) Apply(cfg *types.Config) {
	if cfg.Sources.SemanticScholarAPIKey == "" {
		cfg.Sources.SemanticScholarAPIKey = s.Get(SemanticScholarKey)
	}
	if cfg.Sources.PubMedAPIKey == "" {
		cfg.Sources.PubMedAPIKey = s.Get(PubMedKey)
	}
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "gemini") {
		cfg.LLM.APIKey = s.Get(GeminiKey)
	}
}
