package engine

import (
	"context"
	"math"
	"testing"

	"github.com/synapsedb/mnemosyne/internal/store/memstore"
	"github.com/synapsedb/mnemosyne/internal/types"
)

func newTestEngine(t *testing.T, emb *fakeEmbedder) (*Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New(0)
	eng, err := New(st, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, st
}

// Duplicate reinforcement: identical content strengthens rather than inserts.
func TestSave_DuplicateReinforcement(t *testing.T) {
	emb := newFakeEmbedder(0)
	eng, st := newTestEngine(t, emb)
	ctx := context.Background()

	resA, err := eng.Save(ctx, SaveInput{Content: "Deploy using kubectl apply"})
	if err != nil {
		t.Fatalf("save A: %v", err)
	}
	if resA.Decision != types.DecisionCreate {
		t.Fatalf("expected CREATE, got %s", resA.Decision)
	}

	resB, err := eng.Save(ctx, SaveInput{Content: "Deploy using kubectl apply"})
	if err != nil {
		t.Fatalf("save B: %v", err)
	}
	if resB.Decision != types.DecisionReject {
		t.Fatalf("expected REJECT-as-duplicate, got %s", resB.Decision)
	}
	if resB.MatchedID != resA.Record.ID {
		t.Fatalf("expected B to match A's id")
	}
	if math.Abs(resB.Similarity-1.0) > 1e-9 {
		t.Fatalf("expected similarity 1.0, got %v", resB.Similarity)
	}

	if st.Len() != 1 {
		t.Fatalf("expected exactly 1 record, got %d", st.Len())
	}

	stored, err := st.FetchByID(ctx, resA.Record.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stored.ReviewCount != 2 {
		t.Fatalf("expected review_count=2, got %d", stored.ReviewCount)
	}

	audit := st.Audit()
	if len(audit) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit))
	}
	if audit[0].Decision != types.DecisionCreate || audit[1].Decision != types.DecisionReject {
		t.Fatalf("unexpected audit decisions: %v, %v", audit[0].Decision, audit[1].Decision)
	}
}

// Contradiction: near-identical but opposed content creates both records and logs a conflict.
func TestSave_Contradiction(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	a := "The API uses bearer tokens"
	b := "The API does not use bearer tokens"
	emb.set(a, []float64{1, 0, 0})
	emb.set(b, []float64{0.93, math.Sqrt(1 - 0.93*0.93), 0})

	eng, st := newTestEngine(t, emb)
	ctx := context.Background()

	resA, err := eng.Save(ctx, SaveInput{Content: a})
	if err != nil {
		t.Fatalf("save A: %v", err)
	}
	resB, err := eng.Save(ctx, SaveInput{Content: b})
	if err != nil {
		t.Fatalf("save B: %v", err)
	}

	if resA.Decision != types.DecisionCreate || resB.Decision != types.DecisionCreate {
		t.Fatalf("expected both CREATE, got %s / %s", resA.Decision, resB.Decision)
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", st.Len())
	}

	conflicts := st.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict entry, got %d", len(conflicts))
	}
	if conflicts[0].MemoryAID != resA.Record.ID || conflicts[0].MemoryBID != resB.Record.ID {
		t.Fatalf("conflict entry doesn't link the two records")
	}
}

// Below MEDIUM_MATCH, the gate must CREATE without touching any existing
// record.
func TestSave_LowSimilarityCreates(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("alpha", []float64{1, 0, 0})
	emb.set("beta", []float64{0, 1, 0})

	eng, st := newTestEngine(t, emb)
	ctx := context.Background()

	if _, err := eng.Save(ctx, SaveInput{Content: "alpha"}); err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	res, err := eng.Save(ctx, SaveInput{Content: "beta"})
	if err != nil {
		t.Fatalf("save beta: %v", err)
	}
	if res.Decision != types.DecisionCreate {
		t.Fatalf("expected CREATE, got %s", res.Decision)
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", st.Len())
	}
}

// Medium-match similarity yields a MERGE candidacy, not an insert.
func TestSave_MediumMatchMerge(t *testing.T) {
	dim := 3
	emb := newFakeEmbedder(dim)
	emb.set("alpha", []float64{1, 0, 0})
	emb.set("alpha-ish", []float64{0.8, math.Sqrt(1 - 0.8*0.8), 0})

	eng, st := newTestEngine(t, emb)
	ctx := context.Background()

	if _, err := eng.Save(ctx, SaveInput{Content: "alpha"}); err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	res, err := eng.Save(ctx, SaveInput{Content: "alpha-ish"})
	if err != nil {
		t.Fatalf("save alpha-ish: %v", err)
	}
	if res.Decision != types.DecisionMerge {
		t.Fatalf("expected MERGE, got %s", res.Decision)
	}
	if st.Len() != 1 {
		t.Fatalf("MERGE must not insert a new record, got %d records", st.Len())
	}
}

// Failure mode: similarity index unavailable falls through to CREATE,
// marked degraded, never a silent reject.
func TestSave_DegradedIndexFallsThroughToCreate(t *testing.T) {
	emb := newFakeEmbedder(0)
	eng, st := newTestEngine(t, emb)
	ctx := context.Background()

	if _, err := eng.Save(ctx, SaveInput{Content: "Deploy using kubectl apply"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st.SetDegraded(true)

	res, err := eng.Save(ctx, SaveInput{Content: "Deploy using kubectl apply"})
	if err != nil {
		t.Fatalf("save under degraded index: %v", err)
	}
	if res.Decision != types.DecisionCreate || !res.Degraded {
		t.Fatalf("expected degraded CREATE, got decision=%s degraded=%v", res.Decision, res.Degraded)
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 records after degraded admit, got %d", st.Len())
	}
}

func TestNew_RejectsUnbalancedScorerWeights(t *testing.T) {
	st := memstore.New(0)
	emb := newFakeEmbedder(0)

	_, err := New(st, emb, func(e *Engine) {
		e2 := e.scorer
		e2.SemanticSimilarity += 0.5
		e.scorer = e2
	})
	if err == nil {
		t.Fatalf("expected ConfigInvalid error for unbalanced weights")
	}
	if !IsKind(err, KindConfigInvalid) {
		t.Fatalf("expected KindConfigInvalid, got %v", err)
	}
}
