package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// fakeEmbedder returns pre-registered vectors for known inputs and falls
// back to a deterministic local hash for anything else, giving tests
// precise control over the cosine similarity between specific contents
// without depending on hash coincidences.
type fakeEmbedder struct {
	vectors map[string][]float64
	fail    bool
	fallback *embedding.LocalProvider
}

func newFakeEmbedder(dimension int) *fakeEmbedder {
	return &fakeEmbedder{
		vectors:  make(map[string][]float64),
		fallback: embedding.NewLocalProvider(dimension),
	}
}

func (f *fakeEmbedder) set(text string, vec []float64) {
	f.vectors[text] = vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.fail {
		return nil, embedding.ErrUnavailable
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback.Embed(ctx, text)
}

func (f *fakeEmbedder) Dimension() int { return f.fallback.Dimension() }

func (f *fakeEmbedder) IsAvailable(ctx context.Context) bool { return !f.fail }

// keywordOnlyStore is a minimal store.Store + store.KeywordSearcher fake:
// Nearest always reports the index unavailable, and KeywordSearch matches
// a record when its content contains every query term (case-insensitive),
// like an FTS5 implicit-AND query. It exists to exercise the degraded-search
// fallback path without a real FTS5-backed store.
type keywordOnlyStore struct {
	mu      sync.Mutex
	records map[string]*types.Memory
}

func newKeywordOnlyStore() *keywordOnlyStore {
	return &keywordOnlyStore{records: make(map[string]*types.Memory)}
}

func (s *keywordOnlyStore) put(m *types.Memory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.records[m.ID] = &cp
}

func (s *keywordOnlyStore) FetchByID(_ context.Context, id string) (*types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *keywordOnlyStore) Nearest(context.Context, []float64, int, store.Filter) ([]store.Match, bool, error) {
	return nil, false, nil
}

func (s *keywordOnlyStore) ListArchived(context.Context) ([]*types.Memory, error) { return nil, nil }

func (s *keywordOnlyStore) Transaction(ctx context.Context, fn func(store.Tx) error) error {
	return fn(&keywordOnlyTx{s: s})
}

func (s *keywordOnlyStore) KeywordSearch(_ context.Context, query string, k int, filter store.Filter) ([]store.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []store.Match
	q := strings.ToLower(query)
	for _, m := range s.records {
		if filter.ExcludeArchived && m.LifecycleState == types.StateArchived {
			continue
		}
		content := strings.ToLower(m.Content)
		matched := true
		for _, term := range strings.Fields(q) {
			if !strings.Contains(content, term) {
				matched = false
				break
			}
		}
		if matched {
			cp := *m
			matches = append(matches, store.Match{Record: &cp, Similarity: 0.5})
		}
	}
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

type keywordOnlyTx struct{ s *keywordOnlyStore }

func (t *keywordOnlyTx) FetchByID(id string) (*types.Memory, error) {
	return t.s.FetchByID(context.Background(), id)
}
func (t *keywordOnlyTx) Nearest(e []float64, k int, f store.Filter) ([]store.Match, bool, error) {
	return t.s.Nearest(context.Background(), e, k, f)
}
func (t *keywordOnlyTx) Insert(m *types.Memory) error { t.s.put(m); return nil }
func (t *keywordOnlyTx) Update(m *types.Memory) error { t.s.put(m); return nil }
func (t *keywordOnlyTx) AppendAudit(*types.AuditEntry) error       { return nil }
func (t *keywordOnlyTx) AppendConflict(*types.ConflictEntry) error { return nil }

var _ store.Store = (*keywordOnlyStore)(nil)
var _ store.KeywordSearcher = (*keywordOnlyStore)(nil)
