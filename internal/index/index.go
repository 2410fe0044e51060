// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index is an append-only, exact nearest-neighbor index over paper
// embeddings. Vectors and their records are kept in parallel slices and
// flushed to disk after every Add.
package index

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pdiddy/research-buddy/pkg/types"
)

const (
	VectorsFileName  = "vectors.gob"
	MetadataFileName = "metadata.json"

	// CurrentVersion is the on-disk format version of vectors.gob.
	CurrentVersion = 1
)

var (
	// ErrDimensionMismatch is a configuration error: the embedding model
	// and the index disagree on vector size. Callers must not swallow it.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch means the stored vectors came from another embedding
	// model. Distances across models are meaningless, so it is fatal too.
	ErrModelMismatch = errors.New("embedding model mismatch")

	ErrUnsupportedVersion = errors.New("unsupported index version")
)

// Hit is one nearest-neighbor result.
type Hit struct {
	Record   types.PaperRecord
	Distance float64
	// Similarity is 1/(1+Distance), in (0,1].
	Similarity float64
}

// Stats describes the index contents.
type Stats struct {
	Count     int
	Dimension int
	Model     string
	Dir       string
}

// Index is safe for concurrent use: Add takes the write lock, Search and
// the accessors take the read lock.
type Index struct {
	mu        sync.RWMutex
	dir       string
	dimension int
	model     string
	vectors   [][]float32
	records   []types.PaperRecord
	ids       map[string]struct{}
}

// vectorFile is the gob payload of vectors.gob.
type vectorFile struct {
	Version   int
	Dimension int
	Model     string
	Vectors   [][]float32
}

// Open loads the index stored in dir, or returns an empty index when either
// file is missing. A stored index built with another dimension returns
// ErrDimensionMismatch; one built by another model returns ErrModelMismatch.
// An empty model on either side skips the model check.
func Open(dir string, dimension int, model string) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	idx := &Index{dir: dir, dimension: dimension, model: model, ids: make(map[string]struct{})}

	vecPath := filepath.Join(dir, VectorsFileName)
	metaPath := filepath.Join(dir, MetadataFileName)
	if !exists(vecPath) || !exists(metaPath) {
		return idx, nil
	}

	vf, err := readVectors(vecPath)
	if err != nil {
		return nil, err
	}
	if vf.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'research-buddy index reset')",
			ErrUnsupportedVersion, vf.Version, CurrentVersion)
	}
	if vf.Dimension != dimension {
		return nil, fmt.Errorf("%w: stored index has dimension %d, embedder produces %d",
			ErrDimensionMismatch, vf.Dimension, dimension)
	}
	if vf.Model != "" && model != "" && vf.Model != model {
		return nil, fmt.Errorf("%w: stored index was built by %q, embedder is %q",
			ErrModelMismatch, vf.Model, model)
	}
	if idx.model == "" {
		idx.model = vf.Model
	}

	records, err := readMetadata(metaPath)
	if err != nil {
		return nil, err
	}

	// Both files only grow, so after an interrupted flush the shorter one
	// is a prefix of the longer.
	n := min(len(vf.Vectors), len(records))
	idx.vectors = vf.Vectors[:n]
	idx.records = records[:n]
	for _, r := range idx.records {
		idx.ids[r.ID] = struct{}{}
	}
	return idx, nil
}

// Add appends vectors with their parallel records and flushes the index.
// Nothing is added when any vector has the wrong dimension.
func (idx *Index) Add(vectors [][]float32, records []types.PaperRecord) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d vectors for %d records", ErrDimensionMismatch, len(vectors), len(records))
	}
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d",
				ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := len(idx.vectors)
	for i := range vectors {
		v := make([]float32, len(vectors[i]))
		copy(v, vectors[i])
		idx.vectors = append(idx.vectors, v)
		idx.records = append(idx.records, records[i])
	}
	if err := idx.flush(); err != nil {
		idx.vectors = idx.vectors[:n]
		idx.records = idx.records[:n]
		return err
	}
	for _, r := range records {
		idx.ids[r.ID] = struct{}{}
	}
	return nil
}

// Contains reports whether a record with id has been indexed.
func (idx *Index) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.ids[id]
	return ok
}

// Search returns up to k stored records nearest to query by Euclidean
// distance, closest first. Equal distances keep insertion order. k larger
// than the index returns everything.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(query), idx.dimension)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]Hit, len(idx.vectors))
	for i, v := range idx.vectors {
		d := euclidean(query, v)
		hits[i] = Hit{Record: idx.records[i], Distance: d, Similarity: 1 / (1 + d)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < 0 {
		k = 0
	}
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

func (idx *Index) Dimension() int { return idx.dimension }

// Model returns the embedding model name the vectors were built with.
func (idx *Index) Model() string { return idx.model }

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{Count: len(idx.vectors), Dimension: idx.dimension, Model: idx.model, Dir: idx.dir}
}

// Reset removes the persisted files and empties the index.
func (idx *Index) Reset() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := Remove(idx.dir); err != nil {
		return err
	}
	idx.vectors = nil
	idx.records = nil
	idx.ids = make(map[string]struct{})
	return nil
}

// Remove deletes the index files in dir without opening them, so an index
// built for another dimension or model can still be cleared.
func Remove(dir string) error {
	for _, name := range []string{VectorsFileName, MetadataFileName} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// flush writes metadata first, then vectors. Caller holds the write lock.
func (idx *Index) flush() error {
	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	meta, err := json.Marshal(idx.records)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	err = writeAtomic(filepath.Join(idx.dir, MetadataFileName), func(f *os.File) error {
		_, err := f.Write(meta)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	vf := vectorFile{Version: CurrentVersion, Dimension: idx.dimension, Model: idx.model, Vectors: idx.vectors}
	err = writeAtomic(filepath.Join(idx.dir, VectorsFileName), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(&vf)
	})
	if err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file first, then renames it over path.
func writeAtomic(path string, write func(*os.File) error) error {
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func readVectors(path string) (vectorFile, error) {
	var vf vectorFile
	f, err := os.Open(path)
	if err != nil {
		return vf, fmt.Errorf("opening vectors: %w", err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&vf); err != nil {
		return vf, fmt.Errorf("decoding vectors: %w", err)
	}
	return vf, nil
}

func readMetadata(path string) ([]types.PaperRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var records []types.PaperRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return records, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
