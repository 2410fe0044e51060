// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashModelName identifies vectors produced by HashProvider.
const HashModelName = "feature-hash"

// HashProvider is a deterministic, offline embedder. Each lowercased word
// and adjacent word pair is hashed into one of Dims buckets with a hashed
// sign, and the result is L2-normalized. Texts sharing vocabulary land
// close together, which is enough for tests and --offline runs.
type HashProvider struct {
	Dims int
}

// NewHashProvider returns a HashProvider with dims buckets, or
// DefaultDimensions when dims is not positive.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashProvider{Dims: dims}
}

func (h *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}
	return Embedding{Vector: h.vector(text)}, nil
}

func (h *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, h, texts)
}

func (h *HashProvider) ModelName() string { return HashModelName }

func (h *HashProvider) Dimensions() int { return h.Dims }

func (h *HashProvider) vector(text string) []float32 {
	v := make([]float32, h.Dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, w := range words {
		h.add(v, w, 1)
		if i > 0 {
			h.add(v, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (h *HashProvider) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := sum % uint64(len(v))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}
