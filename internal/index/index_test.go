// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-buddy/pkg/types"
)

const testModel = "test-model"

func fixture(n, dim int) ([][]float32, []types.PaperRecord) {
	vectors := make([][]float32, n)
	records := make([]types.PaperRecord, n)
	for i := range n {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32((i+1)*(j+2)%7) / 7
		}
		v[i%dim] += float32(i + 1)
		vectors[i] = v
		records[i] = types.PaperRecord{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("Paper %d", i)}
	}
	return vectors, records
}

func TestSearchRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 5, 40} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			idx, err := Open(t.TempDir(), 8, testModel)
			require.NoError(t, err)
			vectors, records := fixture(n, 8)
			require.NoError(t, idx.Add(vectors, records))

			for i, v := range vectors {
				hits, err := idx.Search(v, 1)
				require.NoError(t, err)
				require.Len(t, hits, 1)
				assert.Equal(t, records[i].ID, hits[0].Record.ID)
				assert.Equal(t, 0.0, hits[0].Distance)
				assert.Equal(t, 1.0, hits[0].Similarity)
			}
		})
	}
}

func TestSearchOrderingAndSimilarity(t *testing.T) {
	idx, err := Open(t.TempDir(), 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		[][]float32{{3, 0}, {1, 0}, {0, 1}, {-1, 0}},
		[]types.PaperRecord{{ID: "far"}, {ID: "near"}, {ID: "tie-a"}, {ID: "tie-b"}},
	))

	hits, err := idx.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4, "k beyond count returns everything")

	var got []string
	for _, h := range hits {
		got = append(got, h.Record.ID)
	}
	assert.Equal(t, []string{"near", "tie-a", "tie-b", "far"}, got, "ties keep insertion order")
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 0.5, hits[0].Similarity, 1e-9)
	assert.InDelta(t, 0.25, hits[3].Similarity, 1e-9)
	for _, h := range hits {
		assert.Greater(t, h.Similarity, 0.0)
		assert.LessOrEqual(t, h.Similarity, 1.0)
	}
}

func TestSearchEmptyAndZeroK(t *testing.T) {
	idx, err := Open(t.TempDir(), 3, testModel)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Add([][]float32{{1, 2, 3}}, []types.PaperRecord{{ID: "a"}}))
	hits, err = idx.Search([]float32{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDimensionMismatch(t *testing.T) {
	idx, err := Open(t.TempDir(), 4, testModel)
	require.NoError(t, err)

	err = idx.Add([][]float32{{1, 2, 3, 4}, {1, 2}}, []types.PaperRecord{{ID: "ok"}, {ID: "short"}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len(), "a rejected batch adds nothing")

	err = idx.Add([][]float32{{1, 2, 3, 4}}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search([]float32{1}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Open(t.TempDir(), 0, testModel)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPersistenceReload(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 8, testModel)
	require.NoError(t, err)

	vectors, records := fixture(6, 8)
	require.NoError(t, idx.Add(vectors[:3], records[:3]))
	require.NoError(t, idx.Add(vectors[3:], records[3:]))
	assert.FileExists(t, filepath.Join(dir, VectorsFileName))
	assert.FileExists(t, filepath.Join(dir, MetadataFileName))
	assert.NoFileExists(t, filepath.Join(dir, VectorsFileName+".tmp"))

	reopened, err := Open(dir, 8, testModel)
	require.NoError(t, err)
	assert.Equal(t, 6, reopened.Len())
	assert.True(t, reopened.Contains("p5"))
	assert.False(t, reopened.Contains("p6"))

	hits, err := reopened.Search(vectors[4], 1)
	require.NoError(t, err)
	assert.Equal(t, "p4", hits[0].Record.ID)
	assert.Equal(t, "Paper 4", hits[0].Record.Title)

	_, err = Open(dir, 16, testModel)
	assert.ErrorIs(t, err, ErrDimensionMismatch, "reopening with another model dimension is fatal")
}

func TestOpenMissingMetadataStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 1}}, []types.PaperRecord{{ID: "a"}}))
	require.NoError(t, os.Remove(filepath.Join(dir, MetadataFileName)))

	reopened, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestReset(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 1}}, []types.PaperRecord{{ID: "a"}}))

	assert.True(t, idx.Contains("a"))
	require.NoError(t, idx.Reset())
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains("a"))
	assert.NoFileExists(t, filepath.Join(dir, VectorsFileName))
	require.NoError(t, idx.Reset(), "resetting an empty index is fine")
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	idx, err := Open(t.TempDir(), 4, testModel)
	require.NoError(t, err)
	vectors, records := fixture(20, 4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range vectors {
			assert.NoError(t, idx.Add(vectors[i:i+1], records[i:i+1]))
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				hits, err := idx.Search(vectors[0], 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(hits), 3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, idx.Len())
	assert.Equal(t, Stats{Count: 20, Dimension: 4, Model: testModel, Dir: idx.dir}, idx.Stats())
}

func TestRemoveClearsMismatchedIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 1}}, []types.PaperRecord{{ID: "a"}}))

	_, err = Open(dir, 3, testModel)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, Remove(dir))
	reopened, err := Open(dir, 3, testModel)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len())
}

func TestOpenRejectsOtherModel(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 4, "all-minilm:l6-v2")
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0, 0}}, []types.PaperRecord{{ID: "a"}}))

	_, err = Open(dir, 4, "hash-fnv")
	require.ErrorIs(t, err, ErrModelMismatch, "same dimension, different model")

	reopened, err := Open(dir, 4, "all-minilm:l6-v2")
	require.NoError(t, err)
	assert.Equal(t, "all-minilm:l6-v2", reopened.Model())
	assert.Equal(t, 1, reopened.Len())

	require.NoError(t, Remove(dir))
	fresh, err := Open(dir, 4, "hash-fnv")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Len())
}

func TestOpenWithoutModelAdoptsStored(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 1}}, []types.PaperRecord{{ID: "a"}}))

	reopened, err := Open(dir, 2, "")
	require.NoError(t, err)
	assert.Equal(t, testModel, reopened.Model())
}

func TestOpenTruncatesToSharedPrefix(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		[][]float32{{1, 0}, {0, 1}},
		[]types.PaperRecord{{ID: "a"}, {ID: "b"}},
	))

	// Metadata is flushed first; simulate a crash before vectors.gob was rewritten.
	longer := []types.PaperRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	data, err := json.Marshal(longer)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644))

	reopened, err := Open(dir, 2, testModel)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	assert.True(t, reopened.Contains("b"))
	assert.False(t, reopened.Contains("c"), "records past the vectors are dropped")

	hits, err := reopened.Search([]float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].Record.ID)
}
