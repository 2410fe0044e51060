// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns paper text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/research-buddy/pkg/types"
)

// Embedding is a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 384 dimensions for all-minilm
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Provider generates embeddings from text. Every vector a provider returns
// has exactly Dimensions() entries.
type Provider interface {
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch embeds texts in order. It fails as a whole.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	ModelName() string
	Dimensions() int
}

// PaperText is the text embedded for a record: the abstract, or the title
// when the abstract is empty.
func PaperText(r types.PaperRecord) string {
	if a := strings.TrimSpace(r.Abstract); a != "" {
		return a
	}
	return r.Title
}

// PaperTexts maps PaperText over records.
func PaperTexts(records []types.PaperRecord) []string {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = PaperText(r)
	}
	return texts
}

// embedEach implements EmbedBatch for providers that embed one text per call.
func embedEach(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		out[i] = e.Vector
	}
	return out, nil
}
