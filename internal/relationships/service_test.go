package relationships

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/synapsedb/mnemosyne/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewService(db)
}

// insertConflict writes a memory_conflicts row directly, the same way
// engine.Engine.Save does inside its transaction, without going through
// the full save pipeline.
func insertConflict(t *testing.T, s *Service, a, b string, similarity, contradiction float64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO memory_conflicts (id, memory_a, memory_b, similarity, contradiction, detected_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, id, a, b, similarity, contradiction, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("failed to insert conflict: %v", err)
	}
	return id
}

func TestConflictsFor(t *testing.T) {
	s := newTestService(t)

	insertConflict(t, s, "mem-a", "mem-b", 0.93, 1.0)
	insertConflict(t, s, "mem-c", "mem-a", 0.91, 1.0)

	edges, err := s.ConflictsFor("mem-a")
	if err != nil {
		t.Fatalf("ConflictsFor failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges touching mem-a, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Type != EdgeType {
			t.Errorf("expected edge type %q, got %q", EdgeType, e.Type)
		}
	}

	none, err := s.ConflictsFor("mem-z")
	if err != nil {
		t.Fatalf("ConflictsFor failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no edges for unrelated memory, got %d", len(none))
	}
}

func TestConflictsForRequiresID(t *testing.T) {
	s := newTestService(t)
	if _, err := s.ConflictsFor(""); err == nil {
		t.Error("expected error for empty memory_id")
	}
}

func TestMapGraphTraversal(t *testing.T) {
	s := newTestService(t)

	// Chain: A -contradicts- B -contradicts- C -contradicts- D
	insertConflict(t, s, "A", "B", 0.92, 1.0)
	insertConflict(t, s, "B", "C", 0.91, 1.0)
	insertConflict(t, s, "C", "D", 0.95, 1.0)

	g, err := s.MapGraph("A", 1)
	if err != nil {
		t.Fatalf("MapGraph failed: %v", err)
	}
	if g.TotalNodes != 2 {
		t.Errorf("expected 2 nodes at depth 1 (A, B), got %d", g.TotalNodes)
	}

	g2, err := s.MapGraph("A", 2)
	if err != nil {
		t.Fatalf("MapGraph failed: %v", err)
	}
	if g2.TotalNodes != 3 {
		t.Errorf("expected 3 nodes at depth 2 (A, B, C), got %d", g2.TotalNodes)
	}

	g3, err := s.MapGraph("A", 0)
	if err != nil {
		t.Fatalf("MapGraph failed: %v", err)
	}
	if g3.MaxDepth != defaultGraphDepth {
		t.Errorf("expected default depth %d, got %d", defaultGraphDepth, g3.MaxDepth)
	}

	g4, err := s.MapGraph("A", 99)
	if err != nil {
		t.Fatalf("MapGraph failed: %v", err)
	}
	if g4.MaxDepth != maxGraphDepth {
		t.Errorf("expected capped depth %d, got %d", maxGraphDepth, g4.MaxDepth)
	}
}

func TestMapGraphRequiresRootID(t *testing.T) {
	s := newTestService(t)
	if _, err := s.MapGraph("", 2); err == nil {
		t.Error("expected error for empty root_id")
	}
}

func TestResolveAndUnresolved(t *testing.T) {
	s := newTestService(t)

	id := insertConflict(t, s, "mem-a", "mem-b", 0.93, 1.0)
	insertConflict(t, s, "mem-c", "mem-d", 0.93, 1.0)

	unresolved, err := s.Unresolved(10)
	if err != nil {
		t.Fatalf("Unresolved failed: %v", err)
	}
	if len(unresolved) != 2 {
		t.Fatalf("expected 2 unresolved conflicts, got %d", len(unresolved))
	}

	if err := s.Resolve(id); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	unresolved, err = s.Unresolved(10)
	if err != nil {
		t.Fatalf("Unresolved failed: %v", err)
	}
	if len(unresolved) != 1 {
		t.Fatalf("expected 1 unresolved conflict after resolving one, got %d", len(unresolved))
	}
}

func TestResolveNonexistent(t *testing.T) {
	s := newTestService(t)
	if err := s.Resolve("nonexistent-id"); err == nil {
		t.Error("expected error resolving a nonexistent conflict")
	}
}
