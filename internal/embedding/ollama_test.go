// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.model != DefaultModel {
		t.Errorf("model = %s, want %s", provider.model, DefaultModel)
	}
	if provider.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, DefaultDimensions)
	}
	if provider.client == nil {
		t.Error("client should not be nil")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080"),
		WithModel("nomic-embed-text"),
		WithDimensions(768),
		WithTimeout(60*time.Second),
	)

	if provider.baseURL != "http://custom:8080" {
		t.Errorf("baseURL = %s", provider.baseURL)
	}
	if provider.ModelName() != "nomic-embed-text" {
		t.Errorf("ModelName() = %s", provider.ModelName())
	}
	if provider.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d", provider.Dimensions())
	}
	if provider.client.Timeout != 60*time.Second {
		t.Errorf("timeout = %v", provider.client.Timeout)
	}
}

func TestNewOllamaProvider_ZeroOptionsKeepDefaults(t *testing.T) {
	provider := NewOllamaProvider(WithBaseURL(""), WithModel(""), WithDimensions(0), WithTimeout(0))
	if provider.baseURL != DefaultOllamaURL || provider.model != DefaultModel || provider.dimensions != DefaultDimensions {
		t.Errorf("zero options should keep defaults: %+v", provider)
	}
	if provider.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", provider.client.Timeout, DefaultTimeout)
	}
}

func newOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(apiPathEmbeddings, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "fail" {
			http.Error(w, "model crashed", http.StatusInternalServerError)
			return
		}
		vec := make([]float32, dims)
		vec[len(req.Prompt)%dims] = 1
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vec})
	})
	mux.HandleFunc(apiPathTags, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"all-minilm:l6-v2"},{"name":"nomic-embed-text:latest"}]}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestOllamaProvider_Embed(t *testing.T) {
	ts := newOllamaServer(t, 4)
	p := NewOllamaProvider(WithBaseURL(ts.URL), WithDimensions(4), WithHTTPClient(ts.Client()))

	e, err := p.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if e.Dimensions() != 4 || e.Vector[3] != 1 {
		t.Errorf("Vector = %v", e.Vector)
	}

	batch, err := p.EmbedBatch(context.Background(), []string{"a", "ab"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != 2 || batch[0][1] != 1 || batch[1][2] != 1 {
		t.Errorf("batch = %v", batch)
	}
}

func TestOllamaProvider_EmbedErrors(t *testing.T) {
	ts := newOllamaServer(t, 4)

	p := NewOllamaProvider(WithBaseURL(ts.URL), WithDimensions(4), WithHTTPClient(ts.Client()))
	_, err := p.Embed(context.Background(), "fail")
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("expected status error with body, got %v", err)
	}

	_, err = p.EmbedBatch(context.Background(), []string{"ok", "fail"})
	if err == nil || !strings.Contains(err.Error(), "text 2 of 2") {
		t.Errorf("batch error should name the failing text, got %v", err)
	}

	wrongDims := NewOllamaProvider(WithBaseURL(ts.URL), WithDimensions(384), WithHTTPClient(ts.Client()))
	_, err = wrongDims.Embed(context.Background(), "abc")
	if err == nil || !strings.Contains(err.Error(), "unexpected embedding dimensions") {
		t.Errorf("expected dimension error, got %v", err)
	}
}

func TestOllamaProvider_CheckModel(t *testing.T) {
	ts := newOllamaServer(t, 4)
	ctx := context.Background()

	if err := NewOllamaProvider(WithBaseURL(ts.URL), WithHTTPClient(ts.Client())).CheckModel(ctx); err != nil {
		t.Errorf("CheckModel(default) = %v; want nil", err)
	}
	untagged := NewOllamaProvider(WithBaseURL(ts.URL), WithModel("nomic-embed-text"), WithHTTPClient(ts.Client()))
	if err := untagged.CheckModel(ctx); err != nil {
		t.Errorf("CheckModel(untagged) = %v; want a match on :latest", err)
	}
	missing := NewOllamaProvider(WithBaseURL(ts.URL), WithModel("missing"), WithHTTPClient(ts.Client()))
	err := missing.CheckModel(ctx)
	if !errors.Is(err, ErrModelNotPulled) || !strings.Contains(err.Error(), "ollama pull missing") {
		t.Errorf("CheckModel(missing) = %v; want ErrModelNotPulled with a pull hint", err)
	}
}

func TestOllamaProvider_CheckModelUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := ts.URL
	ts.Close()

	err := NewOllamaProvider(WithBaseURL(base), WithTimeout(time.Second)).CheckModel(context.Background())
	if !errors.Is(err, ErrOllamaUnavailable) {
		t.Errorf("CheckModel = %v; want ErrOllamaUnavailable", err)
	}
}

func TestFormatErrorBody(t *testing.T) {
	for _, in := range []string{"error occurred", "", `{"error": "not found"}`} {
		if got := formatErrorBody(strings.NewReader(in)); got != in {
			t.Errorf("formatErrorBody(%q) = %q", in, got)
		}
	}
}

func TestProvidersImplementProvider(t *testing.T) {
	var _ Provider = (*OllamaProvider)(nil)
	var _ Provider = (*HashProvider)(nil)
}
