package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/types"
)

func insertMemory(t *testing.T, es *EngineStore, id string, embedding []float64) *types.Memory {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &types.Memory{
		ID:             id,
		Content:        fmt.Sprintf("content for %s", id),
		Embedding:      embedding,
		Type:           types.TypeDeclarative,
		CreatedAt:      now,
		LastReview:     now,
		Stability:      2.0,
		Difficulty:     4.0,
		Importance:     0.6,
		LifecycleState: types.StateHot,
	}
	if err := es.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.Insert(m)
	}); err != nil {
		t.Fatalf("insert %s failed: %v", id, err)
	}
	return m
}

func TestEngineStoreFetchByID(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	m := insertMemory(t, es, "mem-1", []float64{1, 0, 0})

	got, err := es.FetchByID(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("FetchByID failed: %v", err)
	}
	if got.Content != m.Content {
		t.Errorf("expected content %q, got %q", m.Content, got.Content)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("expected 3-dim embedding round-trip, got %d", len(got.Embedding))
	}
}

func TestEngineStoreFetchByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}
	if _, err := es.FetchByID(context.Background(), "missing"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineStoreNearest(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	insertMemory(t, es, "close", []float64{1, 0, 0})
	insertMemory(t, es, "far", []float64{0, 1, 0})

	matches, ok, err := es.Nearest(context.Background(), []float64{1, 0, 0}, 1, store.Filter{})
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if !ok {
		t.Fatal("expected index available")
	}
	if len(matches) != 1 || matches[0].Record.ID != "close" {
		t.Errorf("expected closest match to be 'close', got %+v", matches)
	}
}

func TestEngineStoreNearestExcludesArchived(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	m := insertMemory(t, es, "archived-one", []float64{1, 0, 0})
	m.LifecycleState = types.StateArchived
	if err := es.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.Update(m)
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	matches, _, err := es.Nearest(context.Background(), []float64{1, 0, 0}, 10, store.Filter{ExcludeArchived: true})
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	for _, m := range matches {
		if m.Record.ID == "archived-one" {
			t.Error("expected archived record to be excluded")
		}
	}
}

func TestEngineStoreListArchived(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	m := insertMemory(t, es, "will-archive", []float64{1, 0, 0})
	m.LifecycleState = types.StateArchived
	if err := es.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.Update(m)
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	archived, err := es.ListArchived(context.Background())
	if err != nil {
		t.Fatalf("ListArchived failed: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != "will-archive" {
		t.Errorf("expected one archived record, got %+v", archived)
	}
}

func TestEngineStoreKeywordSearch(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &types.Memory{
		ID: "kw-1", Content: "the build pipeline runs go vet before tests",
		Embedding: []float64{1, 0, 0}, Type: types.TypeDeclarative,
		CreatedAt: now, LastReview: now, Stability: 1, Difficulty: 5,
		Importance: 0.5, LifecycleState: types.StateHot,
	}
	if err := es.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.Insert(m)
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	matches, err := es.KeywordSearch(context.Background(), "pipeline", 5, store.Filter{})
	if err != nil {
		t.Fatalf("KeywordSearch failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Record.ID != "kw-1" {
		t.Errorf("expected one match on 'kw-1', got %+v", matches)
	}
}

func TestEngineStoreTransactionRollsBackIndexOnError(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	wantErr := fmt.Errorf("boom")
	err = es.Transaction(context.Background(), func(tx store.Tx) error {
		m := &types.Memory{
			ID: "rollback-me", Content: "x", Embedding: []float64{1, 0, 0},
			Type: types.TypeDeclarative, CreatedAt: time.Now().UTC(), LastReview: time.Now().UTC(),
			Stability: 1, Difficulty: 5, Importance: 0.5, LifecycleState: types.StateHot,
		}
		if err := tx.Insert(m); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected wantErr, got %v", err)
	}

	if _, err := es.FetchByID(context.Background(), "rollback-me"); err != store.ErrNotFound {
		t.Errorf("expected rolled-back record to be absent, got %v", err)
	}

	matches, _, err := es.Nearest(context.Background(), []float64{1, 0, 0}, 10, store.Filter{})
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	for _, m := range matches {
		if m.Record.ID == "rollback-me" {
			t.Error("expected index to have rolled back the aborted insert")
		}
	}
}

func TestEngineStoreAppendAuditAndConflict(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	m := insertMemory(t, es, "audit-target", []float64{1, 0, 0})

	err = es.Transaction(context.Background(), func(tx store.Tx) error {
		if err := tx.AppendAudit(&types.AuditEntry{
			ID: "audit-1", NewContentHash: "hash", MatchedID: m.ID,
			Decision: types.DecisionReinforce, Similarity: 0.95, Reason: "near-duplicate",
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return tx.AppendConflict(&types.ConflictEntry{
			ID: "conflict-1", MemoryAID: m.ID, MemoryBID: "other",
			Similarity: 0.9, ContradictionScore: 0.8, DetectedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM engine_audit").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 audit row, got %d", count)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM memory_conflicts").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 conflict row, got %d", count)
	}
}
