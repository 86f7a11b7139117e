package eval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
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

	es, err := database.NewEngineStore(db)
	if err != nil {
		t.Fatalf("failed to build engine store: %v", err)
	}

	eng, err := engine.New(es, embedding.NewLocalProvider(32))
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return eng
}

func TestRunDefaultFixture(t *testing.T) {
	eng := newTestEngine(t)

	report, err := Run(context.Background(), eng, DefaultFixture(), 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.TotalQueries != len(DefaultFixture().Queries) {
		t.Errorf("expected %d queries, got %d", len(DefaultFixture().Queries), report.TotalQueries)
	}
	// The local hash embedder is not semantically meaningful, so don't
	// assert a specific recall value; just confirm the harness ran the
	// full query set and produced a result per query.
	if len(report.Results) != report.TotalQueries {
		t.Errorf("expected one result per query, got %d results for %d queries",
			len(report.Results), report.TotalQueries)
	}
	if report.RecallAtK < 0 || report.RecallAtK > 1 {
		t.Errorf("recall@k out of range: %v", report.RecallAtK)
	}
}

func TestRunEmptyFixture(t *testing.T) {
	eng := newTestEngine(t)
	report, err := Run(context.Background(), eng, Fixture{}, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.TotalQueries != 0 || report.RecallAtK != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestFormatReport(t *testing.T) {
	report := &Report{TotalQueries: 2, HitsAtK: 1, RecallAtK: 0.5, MeanScore: 0.8, Results: []QueryResult{
		{Query: "q1", Found: true, Rank: 1, Score: 0.8},
		{Query: "q2", Found: false},
	}}
	out := FormatReport(report)
	if out == "" {
		t.Fatal("expected non-empty report text")
	}
}
