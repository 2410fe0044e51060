package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-buddy/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourcesConfig holds settings for the source adapters and the aggregator.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PerSourceLimit is the number of results requested from each source (default 20).
	PerSourceLimit int `json:"per_source_limit" yaml:"per_source_limit" mapstructure:"per_source_limit"`

	// AggregateTimeout bounds a whole fan-out; slower sources are dropped (default 30s).
	AggregateTimeout time.Duration `json:"aggregate_timeout" yaml:"aggregate_timeout" mapstructure:"aggregate_timeout"`

	EnableArxiv           bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`
	EnablePubMed          bool `json:"enable_pubmed" yaml:"enable_pubmed" mapstructure:"enable_pubmed"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// PubMedAPIKey is an optional NCBI E-utilities key.
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty" mapstructure:"pubmed_api_key"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama" or "hash" (offline, deterministic).
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL is the Ollama endpoint (default http://localhost:11434).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the embedding model name (default all-minilm:l6-v2).
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Dimensions is the vector width; the index refuses anything else (default 384).
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// Timeout bounds each embedding request (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig holds settings for the optional generative model.
type LLMConfig struct {
	// Provider is "gemini", "ollama", or "none".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gemini-1.5-flash", "mistral:7b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Config groups every component configuration. It is built once at startup
// and passed to constructors; nothing reads it from package state.
type Config struct {
	// DataDir holds papers.db and the index/ directory.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	Sources   SourcesConfig   `json:"sources" yaml:"sources" mapstructure:"sources"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`

	// ResultsShown is how many ranked results an answer lists (default 5).
	ResultsShown int `json:"results_shown" yaml:"results_shown" mapstructure:"results_shown"`
}
