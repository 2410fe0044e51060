// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-buddy/internal/embedding"
	"github.com/pdiddy/research-buddy/internal/engine"
	"github.com/pdiddy/research-buddy/internal/index"
	"github.com/pdiddy/research-buddy/internal/llm"
	"github.com/pdiddy/research-buddy/internal/search"
	"github.com/pdiddy/research-buddy/internal/source"
	"github.com/pdiddy/research-buddy/internal/store"
	"github.com/pdiddy/research-buddy/pkg/types"
)

const (
	defaultUserAgent   = "research-buddy/0.1"
	defaultHTTPTimeout = 20 * time.Second
	indexDirName       = "index"
)

func setDefaults() {
	viper.SetDefault("data_dir", filepath.Join(xdg.DataHome, "research-buddy"))
	viper.SetDefault("results_shown", 5)

	viper.SetDefault("sources.timeout", defaultHTTPTimeout)
	viper.SetDefault("sources.user_agent", defaultUserAgent)
	viper.SetDefault("sources.per_source_limit", engine.DefaultPerSourceLimit)
	viper.SetDefault("sources.aggregate_timeout", search.DefaultTimeout)
	viper.SetDefault("sources.enable_arxiv", true)
	viper.SetDefault("sources.enable_semantic_scholar", true)
	viper.SetDefault("sources.enable_pubmed", true)

	viper.SetDefault("embedding.provider", "ollama")
	viper.SetDefault("embedding.base_url", embedding.DefaultOllamaURL)
	viper.SetDefault("embedding.model", embedding.DefaultModel)
	viper.SetDefault("embedding.dimensions", embedding.DefaultDimensions)
	viper.SetDefault("embedding.timeout", embedding.DefaultTimeout)

	viper.SetDefault("llm.provider", "none")
	viper.SetDefault("llm.timeout", llm.DefaultTimeout)
}

// loadConfig resolves viper settings and secrets into a Config.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if viper.GetBool("offline") {
		cfg.Embedding.Provider = "hash"
	}
	loadedSecrets.Apply(&cfg)

	if cfg.Embedding.Dimensions <= 0 {
		return cfg, fmt.Errorf("embedding.dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.DataDir == "" {
		return cfg, fmt.Errorf("data_dir is empty")
	}
	return cfg, nil
}

func buildBackends(cfg types.SourcesConfig) []source.Backend {
	client := &http.Client{Timeout: cfg.Timeout}
	var backends []source.Backend
	if cfg.EnableArxiv {
		backends = append(backends, source.NewArxiv(client, cfg))
	}
	if cfg.EnableSemanticScholar {
		backends = append(backends, source.NewSemanticScholar(client, cfg))
	}
	if cfg.EnablePubMed {
		backends = append(backends, source.NewPubMed(client, cfg))
	}
	return backends
}

func buildEmbedder(cfg types.EmbeddingConfig) (embedding.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "hash":
		return embedding.NewHashProvider(cfg.Dimensions), nil
	case "", "ollama":
		return embedding.NewOllamaProvider(
			embedding.WithBaseURL(cfg.BaseURL),
			embedding.WithModel(cfg.Model),
			embedding.WithDimensions(cfg.Dimensions),
			embedding.WithTimeout(cfg.Timeout),
		), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q (want ollama or hash)", cfg.Provider)
}

// modelChecker is implemented by providers that can verify their model is
// available before any paper is embedded.
type modelChecker interface {
	CheckModel(ctx context.Context) error
}

// preflight fails fast with a clear message when the embedding backend
// cannot serve requests.
func preflight(ctx context.Context, p embedding.Provider) error {
	if mc, ok := p.(modelChecker); ok {
		return mc.CheckModel(ctx)
	}
	return nil
}

func buildLLM(cfg types.LLMConfig) (llm.Client, error) {
	return llm.New(llm.Config{
		Provider: strings.ToLower(cfg.Provider),
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	})
}

// app bundles the opened components for one command invocation.
type app struct {
	cfg    types.Config
	store  *store.Store
	index  *index.Index
	engine *engine.Engine
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// openApp opens the library and index under the data dir and wires the
// engine. Callers must Close the result.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, store.DBFile))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.index, err = index.Open(filepath.Join(cfg.DataDir, indexDirName), embedder.Dimensions(), embedder.ModelName())
	if err != nil {
		a.Close()
		return nil, err
	}
	client, err := buildLLM(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = &engine.Engine{
		Aggregator: &search.Aggregator{
			Backends: buildBackends(cfg.Sources),
			Timeout:  cfg.Sources.AggregateTimeout,
			Logger:   logger,
			Progress: os.Stderr,
		},
		Store:    st,
		Index:    a.index,
		Embedder: embedder,
		LLM:      client,
		Logger:   logger,
		Progress: os.Stderr,
	}
	return a, nil
}

func noColor() bool {
	return viper.GetBool("no_color") || os.Getenv("NO_COLOR") != ""
}
