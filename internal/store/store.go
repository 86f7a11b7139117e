// Package store defines the storage contract the engine consumes: fetching
// records, similarity search, and the transactional write path. The engine
// never imports a concrete storage backend directly — it is handed a Store
// at construction time, so the SQLite implementation (internal/database's
// EngineStore) is one
// possible backend among others (an in-memory store is used in tests).
package store

import (
	"context"
	"errors"

	"github.com/synapsedb/mnemosyne/internal/types"
)

// ErrNotFound is returned by FetchByID when no record has the given id.
var ErrNotFound = errors.New("store: record not found")

// ErrConflict signals a transaction was aborted because of contention on a
// record's row group; callers retry with jittered backoff up to 3 times
// before surfacing it.
var ErrConflict = errors.New("store: transaction conflict")

// Filter narrows a Nearest query. ExcludeArchived is true by default for
// the search orchestrator's normal path; explicit archived-record listing
// sets it false.
type Filter struct {
	ExcludeArchived bool
}

// Match pairs a candidate record with its cosine similarity to the query
// embedding.
type Match struct {
	Record     *types.Memory
	Similarity float64
}

// Store is the read/write surface the engine's orchestrators depend on.
type Store interface {
	// FetchByID returns the record with id, or ErrNotFound.
	FetchByID(ctx context.Context, id string) (*types.Memory, error)

	// Nearest returns up to k records ranked by cosine similarity to
	// embedding, honoring filter. An empty, non-error result with
	// ok=false indicates the similarity index itself was unavailable
	// (distinct from "found nothing"), which the gate treats as a
	// degraded admit.
	Nearest(ctx context.Context, embedding []float64, k int, filter Filter) (matches []Match, ok bool, err error)

	// ListArchived returns archived records for explicit inspection.
	ListArchived(ctx context.Context) ([]*types.Memory, error)

	// Transaction runs fn with an exclusive lock over the records it
	// touches. fn receives a Tx scoped to that transaction; any error fn
	// returns aborts and rolls back the whole transaction, including any
	// record write and its audit entry together.
	Transaction(ctx context.Context, fn func(Tx) error) error
}

// KeywordSearcher is an optional capability a Store implementation may
// provide: non-semantic keyword search over record content, backing the
// search orchestrator's degraded fallback when the embedding
// provider is unavailable. The brute-force in-memory store used in tests
// does not implement it; the SQLite store does, via its FTS5 mirror table.
type KeywordSearcher interface {
	KeywordSearch(ctx context.Context, query string, k int, filter Filter) ([]Match, error)
}

// Tx is the write surface available inside a Transaction callback. It also
// exposes Nearest so the gate can be re-run under the exclusive lock,
// which is what gives two concurrent saves of identical content exactly
// one record plus two audit entries rather than two records.
type Tx interface {
	FetchByID(id string) (*types.Memory, error)
	Nearest(embedding []float64, k int, filter Filter) (matches []Match, ok bool, err error)
	Insert(m *types.Memory) error
	Update(m *types.Memory) error
	AppendAudit(entry *types.AuditEntry) error
	AppendConflict(entry *types.ConflictEntry) error
}
