package vector

import (
	"context"
	"fmt"

	"github.com/synapsedb/mnemosyne/internal/store/vectorindex"
)

// Index adapts QdrantClient to the vectorindex.Index contract without
// internal/store knowing Qdrant exists. No store constructs it: the
// stores build vectorindex.BruteForce regardless of configuration.
type Index struct {
	client *QdrantClient
}

// NewIndex wraps an already-configured QdrantClient. Callers are
// responsible for calling InitCollection once before first use.
func NewIndex(client *QdrantClient) *Index {
	return &Index{client: client}
}

func (i *Index) Dimension() int {
	return i.client.Dimension()
}

func (i *Index) Upsert(ctx context.Context, e vectorindex.Entry) error {
	return i.client.Upsert(ctx, e.ID, e.Embedding, nil)
}

func (i *Index) Delete(ctx context.Context, id string) error {
	return i.client.Delete(ctx, []string{id})
}

func (i *Index) Search(ctx context.Context, embedding []float64, k int) ([]vectorindex.Result, error) {
	hits, err := i.client.Search(ctx, &SearchOptions{Vector: embedding, Limit: k})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	results := make([]vectorindex.Result, len(hits))
	for idx, h := range hits {
		results[idx] = vectorindex.Result{ID: h.ID, Similarity: h.Score}
	}
	return results, nil
}

var _ vectorindex.Index = (*Index)(nil)
