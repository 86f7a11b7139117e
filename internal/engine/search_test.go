package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/store/memstore"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// Testing effect: a high-similarity hit strengthens the record and
// bumps both counters.
func TestSearch_TestingEffectStrengthensOnHighMatch(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("query", []float64{0.92, math.Sqrt(1 - 0.92*0.92), 0})

	st := memstore.New(dim)
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	now := time.Now().UTC()
	record := &types.Memory{
		ID:          "rec-1",
		Content:     "matched content",
		Embedding:   []float64{1, 0, 0},
		Type:        types.TypeDeclarative,
		CreatedAt:   now.AddDate(0, 0, -10),
		LastReview:  now.AddDate(0, 0, -10),
		Stability:   10,
		Difficulty:  5,
		ReviewCount: 3,
		AccessCount: 5,
		Importance:  0.5,
	}
	if err := st.Transaction(ctx, func(tx store.Tx) error { return tx.Insert(record) }); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	hits, err := eng.Search(ctx, SearchInput{Query: "query", Now: now})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	got := hits[0].Record
	if got.ReviewCount != 4 {
		t.Fatalf("expected review_count=4, got %d", got.ReviewCount)
	}
	if got.AccessCount != 6 {
		t.Fatalf("expected access_count=6, got %d", got.AccessCount)
	}
	if !(got.Stability > 10) {
		t.Fatalf("expected stability strictly greater than 10, got %v", got.Stability)
	}
	if !got.LastReview.Equal(now) {
		t.Fatalf("expected last_review updated to now, got %v", got.LastReview)
	}

	stored, err := st.FetchByID(ctx, "rec-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stored.ReviewCount != 4 {
		t.Fatalf("persisted review_count not updated, got %d", stored.ReviewCount)
	}
}

// A below-MEDIUM_MATCH hit still bumps access_count but does not touch
// stability/difficulty/review_count.
func TestSearch_LowSimilarityOnlyBumpsAccessCount(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("query", []float64{0, 1, 0})

	st := memstore.New(dim)
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	record := &types.Memory{
		ID: "rec-2", Content: "unrelated", Embedding: []float64{1, 0, 0},
		Type: types.TypeDeclarative, CreatedAt: now, LastReview: now,
		Stability: 10, Difficulty: 5, ReviewCount: 3, AccessCount: 5, Importance: 0.5,
	}
	if err := st.Transaction(ctx, func(tx store.Tx) error { return tx.Insert(record) }); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	hits, err := eng.Search(ctx, SearchInput{Query: "query", Now: now})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	got := hits[0].Record
	if got.ReviewCount != 3 {
		t.Fatalf("expected review_count unchanged at 3, got %d", got.ReviewCount)
	}
	if got.AccessCount != 6 {
		t.Fatalf("expected access_count bumped to 6, got %d", got.AccessCount)
	}
}

// Meta-cognitive records are pinned HOT regardless of age and retain
// R=1.0.
func TestSearch_MetaCognitivePinnedHot(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("query", []float64{1, 0, 0})

	st := memstore.New(dim)
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	record := &types.Memory{
		ID: "rec-meta", Content: "core principle", Embedding: []float64{1, 0, 0},
		Type: types.TypeMetaCognitive, CreatedAt: now.AddDate(-10, 0, 0),
		LastReview: now.AddDate(-10, 0, 0), Stability: types.MetaCognitiveStability,
		Difficulty: 1, Importance: 1.0,
	}
	if err := st.Transaction(ctx, func(tx store.Tx) error { return tx.Insert(record) }); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	hits, err := eng.Search(ctx, SearchInput{Query: "query", Now: now})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].State != types.StateHot {
		t.Fatalf("expected HOT, got %s", hits[0].State)
	}
	if hits[0].Signals.Retrievability != 1.0 {
		t.Fatalf("expected retrievability 1.0, got %v", hits[0].Signals.Retrievability)
	}
}

// Archived records are excluded from default search but returned when
// the caller explicitly includes them.
func TestSearch_ExcludesArchivedByDefault(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("query", []float64{1, 0, 0})

	st := memstore.New(dim)
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	record := &types.Memory{
		ID: "rec-archived", Content: "stale", Embedding: []float64{1, 0, 0},
		Type: types.TypeDeclarative, CreatedAt: now.AddDate(0, 0, -200),
		LastReview: now.AddDate(0, 0, -200), Stability: 5, Difficulty: 5,
		Importance: 0.5, LifecycleState: types.StateArchived,
	}
	if err := st.Transaction(ctx, func(tx store.Tx) error { return tx.Insert(record) }); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	hits, err := eng.Search(ctx, SearchInput{Query: "query", Now: now})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected archived record excluded by default, got %d hits", len(hits))
	}

	hits, err = eng.Search(ctx, SearchInput{Query: "query", Now: now, IncludeArchived: true})
	if err != nil {
		t.Fatalf("search with archived: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected archived record included, got %d hits", len(hits))
	}
}

func TestSearch_FallsBackToKeywordSearchWhenEmbeddingUnavailable(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.fail = true

	st := newKeywordOnlyStore()
	eng, err := New(st, emb, WithDegradedSearch(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now().UTC()
	st.put(&types.Memory{
		ID: "rec-1", Content: "the quick brown fox", Embedding: []float64{1, 0, 0},
		Type: types.TypeDeclarative, CreatedAt: now, LastReview: now,
		Stability: 5, Difficulty: 5, Importance: 0.5, LifecycleState: types.StateHot,
	})

	hits, err := eng.Search(context.Background(), SearchInput{Query: "quick fox", Now: now})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one degraded hit, got %d", len(hits))
	}
	if !hits[0].Degraded {
		t.Fatal("expected hit to be flagged degraded")
	}
	if hits[0].Signals.SemanticSimilarity != 0 {
		t.Fatalf("expected semantic similarity signal zeroed in degraded mode, got %v", hits[0].Signals.SemanticSimilarity)
	}
}

func TestSearch_EmbeddingUnavailableWithoutDegradedSearchConfigured(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.fail = true

	st := newKeywordOnlyStore()
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = eng.Search(context.Background(), SearchInput{Query: "quick fox"})
	if !IsKind(err, KindEmbeddingUnavailable) {
		t.Fatalf("expected EmbeddingUnavailable, got %v", err)
	}
}
