// Package vectorindex defines the nearest-neighbor search contract the
// SQLite store delegates to, and a brute-force in-process implementation
// that is the zero-dependency default. A Qdrant-backed implementation
// lives in internal/vector; the stores always build BruteForce, and no
// configuration setting selects the Qdrant one.
package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/synapsedb/mnemosyne/internal/vecmath"
)

// Entry is one indexed vector, keyed by the record id the caller assigned.
type Entry struct {
	ID        string
	Embedding []float64
}

// Result is a search hit: an entry id plus its cosine similarity to the
// query vector.
type Result struct {
	ID         string
	Similarity float64
}

// Index is the nearest-neighbor contract: upsert, delete, and search by
// cosine similarity.
type Index interface {
	Upsert(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, embedding []float64, k int) ([]Result, error)
	Dimension() int
}

// BruteForce is an in-memory cosine-similarity index adequate at the scale
// a single-user memory store operates at. It holds its own copy of every
// embedding, guarded by a mutex; the SQLite store keeps it in sync on
// every insert/update.
type BruteForce struct {
	mu        sync.RWMutex
	entries   map[string][]float64
	dimension int
}

// NewBruteForce creates an empty index fixed to dimension. A dimension of
// 0 means "infer from the first Upsert," after which it is locked.
func NewBruteForce(dimension int) *BruteForce {
	return &BruteForce{
		entries:   make(map[string][]float64),
		dimension: dimension,
	}
}

func (b *BruteForce) Dimension() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dimension
}

// ErrDimensionMismatch is returned when an embedding's length disagrees
// with the index's established dimension.
type ErrDimensionMismatch struct {
	Expected, Got int
}

func (e *ErrDimensionMismatch) Error() string {
	return "vectorindex: dimension mismatch"
}

func (b *BruteForce) Upsert(_ context.Context, e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dimension == 0 {
		b.dimension = len(e.Embedding)
	} else if len(e.Embedding) != b.dimension {
		return &ErrDimensionMismatch{Expected: b.dimension, Got: len(e.Embedding)}
	}

	b.entries[e.ID] = e.Embedding
	return nil
}

func (b *BruteForce) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
	return nil
}

func (b *BruteForce) Search(_ context.Context, embedding []float64, k int) ([]Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	results := make([]Result, 0, len(b.entries))
	for id, vec := range b.entries {
		sim := vecmath.CosineSimilarity(embedding, vec)
		results = append(results, Result{ID: id, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}
