// Package memstore is a process-local implementation of the store.Store
// contract, backed by a map and a brute-force vector index. It is the
// store used in engine unit tests; the CLI and API use the SQLite-backed
// database.EngineStore.
package memstore

import (
	"context"
	"sync"

	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/store/vectorindex"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// Store is a single-process, mutex-guarded Store. It holds one exclusive
// lock for the whole store rather than the SQLite backend's per-row-group
// locking — adequate for tests and single-user CLI use, where true
// row-group concurrency isn't exercised.
type Store struct {
	mu        sync.Mutex
	records   map[string]*types.Memory
	audit     []*types.AuditEntry
	conflicts []*types.ConflictEntry
	index     *vectorindex.BruteForce
	degraded  bool // test hook: force Nearest to report the index unavailable
}

// New creates an empty store. dimension of 0 infers the embedding
// dimension from the first inserted record.
func New(dimension int) *Store {
	return &Store{
		records: make(map[string]*types.Memory),
		index:   vectorindex.NewBruteForce(dimension),
	}
}

// SetDegraded forces subsequent Nearest calls to report the similarity
// index as unavailable, exercising the gate's degraded-admit path.
func (s *Store) SetDegraded(degraded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = degraded
}

func (s *Store) FetchByID(_ context.Context, id string) (*types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) Nearest(ctx context.Context, embedding []float64, k int, filter store.Filter) ([]store.Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nearestLocked(ctx, embedding, k, filter)
}

func (s *Store) nearestLocked(ctx context.Context, embedding []float64, k int, filter store.Filter) ([]store.Match, bool, error) {
	if s.degraded {
		return nil, false, nil
	}

	results, err := s.index.Search(ctx, embedding, 0)
	if err != nil {
		return nil, false, err
	}

	matches := make([]store.Match, 0, len(results))
	for _, r := range results {
		rec, ok := s.records[r.ID]
		if !ok {
			continue
		}
		if filter.ExcludeArchived && rec.LifecycleState == types.StateArchived {
			continue
		}
		cp := *rec
		matches = append(matches, store.Match{Record: &cp, Similarity: r.Similarity})
	}
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, true, nil
}

func (s *Store) ListArchived(_ context.Context) ([]*types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Memory
	for _, m := range s.records {
		if m.LifecycleState == types.StateArchived {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Transaction runs fn holding the store's single exclusive lock, giving
// the whole-store linearizability the SQLite backend's row-group lock
// gives for the single-writer case.
func (s *Store) Transaction(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{s: s, ctx: ctx}
	return fn(tx)
}

type memTx struct {
	s   *Store
	ctx context.Context
}

func (t *memTx) FetchByID(id string) (*types.Memory, error) {
	m, ok := t.s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (t *memTx) Nearest(embedding []float64, k int, filter store.Filter) ([]store.Match, bool, error) {
	return t.s.nearestLocked(t.ctx, embedding, k, filter)
}

func (t *memTx) Insert(m *types.Memory) error {
	cp := *m
	t.s.records[m.ID] = &cp
	return t.s.index.Upsert(t.ctx, vectorindex.Entry{ID: m.ID, Embedding: m.Embedding})
}

func (t *memTx) Update(m *types.Memory) error {
	cp := *m
	t.s.records[m.ID] = &cp
	if m.Embedding != nil {
		return t.s.index.Upsert(t.ctx, vectorindex.Entry{ID: m.ID, Embedding: m.Embedding})
	}
	return nil
}

func (t *memTx) AppendAudit(entry *types.AuditEntry) error {
	cp := *entry
	t.s.audit = append(t.s.audit, &cp)
	return nil
}

func (t *memTx) AppendConflict(entry *types.ConflictEntry) error {
	cp := *entry
	t.s.conflicts = append(t.s.conflicts, &cp)
	return nil
}

// Audit returns a copy of the append-only audit log, newest last. Exposed
// for tests asserting on the decision trail.
func (s *Store) Audit() []*types.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// Conflicts returns a copy of the recorded conflict entries.
func (s *Store) Conflicts() []*types.ConflictEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.ConflictEntry, len(s.conflicts))
	copy(out, s.conflicts)
	return out
}

// Len returns the number of records currently stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
