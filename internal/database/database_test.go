package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/types"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseOpenClose(t *testing.T) {
	db := newTestDB(t)
	if db.Path() == "" {
		t.Fatal("expected non-empty path")
	}
	if err := db.DB().Ping(); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestDatabaseInitSchemaIdempotent(t *testing.T) {
	db := newTestDB(t)
	// Calling InitSchema again should run the migration path, not fail.
	if err := db.InitSchema(); err != nil {
		t.Fatalf("second InitSchema call failed: %v", err)
	}

	ok, err := db.TableExists("engine_memories")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if !ok {
		t.Fatal("expected engine_memories table to exist")
	}
}

func TestDatabaseSchemaVersion(t *testing.T) {
	db := newTestDB(t)
	version, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, version)
	}
}

func TestDatabaseVacuumAndCheckpoint(t *testing.T) {
	db := newTestDB(t)
	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
	if err := db.Checkpoint(); err != nil {
		t.Errorf("Checkpoint failed: %v", err)
	}
}

func TestDatabaseStats(t *testing.T) {
	db := newTestDB(t)
	es, err := NewEngineStore(db)
	if err != nil {
		t.Fatalf("NewEngineStore failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m := newTestMemory(t, i)
		if err := es.Transaction(ctx, func(tx store.Tx) error {
			return tx.Insert(m)
		}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.MemoryCount != 3 {
		t.Errorf("expected 3 memories, got %d", stats.MemoryCount)
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, stats.SchemaVersion)
	}
	if stats.TableCount == 0 {
		t.Error("expected non-zero table count")
	}
}

func newTestMemory(t *testing.T, n int) *types.Memory {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	embedding := make([]float64, 8)
	embedding[n%8] = 1.0
	return &types.Memory{
		ID:             fmt.Sprintf("%s-%d", t.Name(), n),
		Content:        "test memory",
		Embedding:      embedding,
		Type:           types.TypeDeclarative,
		CreatedAt:      now,
		LastReview:     now,
		Stability:      1.0,
		Difficulty:     5.0,
		Importance:     0.5,
		LifecycleState: types.StateHot,
	}
}

