package database

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/store/vectorindex"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// EngineStore is the SQLite-backed store.Store implementation: the
// cognitive engine's production backend. It persists records to the
// engine_memories/engine_audit/memory_conflicts tables added by
// EngineSchema, and keeps an in-process vectorindex.BruteForce in sync on
// every insert/update so Nearest never has to pull every embedding off
// disk per query.
type EngineStore struct {
	db    *Database
	index *vectorindex.BruteForce
}

// NewEngineStore opens an EngineStore against db, loading every existing
// record's embedding into the similarity index. db's schema must already
// include EngineSchema (InitSchema/RunMigrations handle that).
func NewEngineStore(db *Database) (*EngineStore, error) {
	es := &EngineStore{db: db, index: vectorindex.NewBruteForce(0)}
	if err := es.loadIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to warm engine similarity index: %w", err)
	}
	return es, nil
}

func (es *EngineStore) loadIndex(ctx context.Context) error {
	rows, err := es.db.Query(`SELECT id, embedding FROM engine_memories`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		if err := es.index.Upsert(ctx, vectorindex.Entry{ID: id, Embedding: decodeEmbedding(blob)}); err != nil {
			log.Warn("failed to warm index entry", "id", id, "error", err)
		}
	}
	return rows.Err()
}

func encodeEmbedding(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v
}

const timeLayout = time.RFC3339Nano

func scanMemory(row interface {
	Scan(dest ...interface{}) error
}) (*types.Memory, error) {
	var m types.Memory
	var embeddingBlob []byte
	var createdAt, lastReview string
	var filePath, title sql.NullString

	if err := row.Scan(
		&m.ID, &m.Content, &embeddingBlob, &m.Type,
		&createdAt, &lastReview, &m.Stability, &m.Difficulty,
		&m.ReviewCount, &m.AccessCount, &m.Importance, &m.LifecycleState,
		&filePath, &title,
	); err != nil {
		return nil, err
	}

	m.Embedding = decodeEmbedding(embeddingBlob)
	m.FilePath = filePath.String
	m.Title = title.String

	var err error
	if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if m.LastReview, err = time.Parse(timeLayout, lastReview); err != nil {
		return nil, fmt.Errorf("failed to parse last_review: %w", err)
	}
	return &m, nil
}

const memoryColumns = `id, content, embedding, type, created_at, last_review, stability, difficulty, review_count, access_count, importance, lifecycle_state, file_path, title`

func (es *EngineStore) FetchByID(_ context.Context, id string) (*types.Memory, error) {
	row := es.db.QueryRow(`SELECT `+memoryColumns+` FROM engine_memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (es *EngineStore) Nearest(ctx context.Context, embedding []float64, k int, filter store.Filter) ([]store.Match, bool, error) {
	results, err := es.index.Search(ctx, embedding, 0)
	if err != nil {
		return nil, false, err
	}

	matches := make([]store.Match, 0, len(results))
	for _, r := range results {
		rec, err := es.FetchByID(ctx, r.ID)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if filter.ExcludeArchived && rec.LifecycleState == types.StateArchived {
			continue
		}
		matches = append(matches, store.Match{Record: rec, Similarity: r.Similarity})
	}
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, true, nil
}

func (es *EngineStore) ListArchived(_ context.Context) ([]*types.Memory, error) {
	rows, err := es.db.Query(`SELECT `+memoryColumns+` FROM engine_memories WHERE lifecycle_state = ?`, string(types.StateArchived))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// KeywordSearch answers the search orchestrator's degraded fallback
// via the engine_memories_fts mirror table, a bm25-ranked
// standalone-FTS5 table kept in sync by triggers.
func (es *EngineStore) KeywordSearch(ctx context.Context, query string, k int, filter store.Filter) ([]store.Match, error) {
	ftsQuery := escapeEngineFTS5Query(query)
	if k <= 0 {
		k = 10
	}

	rows, err := es.db.Query(`
		SELECT `+prefixColumns("m.", memoryColumns)+`, bm25(engine_memories_fts) as relevance
		FROM engine_memories_fts fts
		JOIN engine_memories m ON m.id = fts.id
		WHERE engine_memories_fts MATCH ?
		ORDER BY relevance
		LIMIT ?
	`, ftsQuery, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	defer rows.Close()

	var matches []store.Match
	for rows.Next() {
		var relevance float64
		m, err := scanMemoryWithTrailing(rows, &relevance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keyword search result: %w", err)
		}
		if filter.ExcludeArchived && m.LifecycleState == types.StateArchived {
			continue
		}
		// bm25() returns negative scores, lower (more negative) is a better
		// match; fold it into the same 0..1 similarity range Nearest uses.
		similarity := 1.0 + (relevance / 10.0)
		if similarity > 1.0 {
			similarity = 1.0
		}
		if similarity < 0.0 {
			similarity = 0.0
		}
		matches = append(matches, store.Match{Record: m, Similarity: similarity})
	}
	return matches, rows.Err()
}

func escapeEngineFTS5Query(query string) string {
	return strings.NewReplacer(`"`, `""`).Replace(query)
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}

// scanMemoryWithTrailing scans the memoryColumns plus one trailing numeric
// column (e.g. a relevance score) into extra.
func scanMemoryWithTrailing(rows *sql.Rows, extra *float64) (*types.Memory, error) {
	var m types.Memory
	var embeddingBlob []byte
	var createdAt, lastReview string
	var filePath, title sql.NullString

	if err := rows.Scan(
		&m.ID, &m.Content, &embeddingBlob, &m.Type,
		&createdAt, &lastReview, &m.Stability, &m.Difficulty,
		&m.ReviewCount, &m.AccessCount, &m.Importance, &m.LifecycleState,
		&filePath, &title, extra,
	); err != nil {
		return nil, err
	}

	m.Embedding = decodeEmbedding(embeddingBlob)
	m.FilePath = filePath.String
	m.Title = title.String

	var err error
	if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if m.LastReview, err = time.Parse(timeLayout, lastReview); err != nil {
		return nil, fmt.Errorf("failed to parse last_review: %w", err)
	}
	return &m, nil
}

var _ store.KeywordSearcher = (*EngineStore)(nil)

// Transaction runs fn inside a SQLite transaction. SQLITE_BUSY (lock
// contention from another writer) is surfaced as store.ErrConflict so the
// engine's retry-with-backoff loop kicks in.
func (es *EngineStore) Transaction(ctx context.Context, fn func(store.Tx) error) error {
	sqlTx, err := es.db.Begin()
	if err != nil {
		if isBusyErr(err) {
			return store.ErrConflict
		}
		return err
	}

	tx := &engineTx{ctx: ctx, sqlTx: sqlTx, index: es.index, es: es}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		tx.rollbackIndex()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		tx.rollbackIndex()
		if isBusyErr(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg, "database is locked", "SQLITE_BUSY", "busy")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) > 0 && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// engineTx is the store.Tx implementation backed by a live *sql.Tx. The
// similarity index is mutated eagerly (outside the SQL transaction, since
// it has no rollback of its own) and unwound manually if the surrounding
// transaction aborts, so Nearest never observes a record the SQL side
// ultimately rolled back.
type engineTx struct {
	ctx     context.Context
	sqlTx   *sql.Tx
	index   *vectorindex.BruteForce
	es      *EngineStore
	undo    []func()
}

func (t *engineTx) rollbackIndex() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *engineTx) FetchByID(id string) (*types.Memory, error) {
	row := t.sqlTx.QueryRow(`SELECT `+memoryColumns+` FROM engine_memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	return m, err
}

func (t *engineTx) Nearest(embedding []float64, k int, filter store.Filter) ([]store.Match, bool, error) {
	results, err := t.index.Search(t.ctx, embedding, 0)
	if err != nil {
		return nil, false, err
	}

	matches := make([]store.Match, 0, len(results))
	for _, r := range results {
		rec, err := t.FetchByID(r.ID)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if filter.ExcludeArchived && rec.LifecycleState == types.StateArchived {
			continue
		}
		matches = append(matches, store.Match{Record: rec, Similarity: r.Similarity})
	}
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, true, nil
}

func (t *engineTx) Insert(m *types.Memory) error {
	_, err := t.sqlTx.Exec(`
		INSERT INTO engine_memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.Content, encodeEmbedding(m.Embedding), string(m.Type),
		m.CreatedAt.Format(timeLayout), m.LastReview.Format(timeLayout),
		m.Stability, m.Difficulty, m.ReviewCount, m.AccessCount,
		m.Importance, string(m.LifecycleState), nullableString(m.FilePath), nullableString(m.Title),
	)
	if err != nil {
		return err
	}

	if err := t.index.Upsert(t.ctx, vectorindex.Entry{ID: m.ID, Embedding: m.Embedding}); err != nil {
		return err
	}
	id := m.ID
	t.undo = append(t.undo, func() { t.index.Delete(t.ctx, id) })
	return nil
}

func (t *engineTx) Update(m *types.Memory) error {
	hadPrev, prevVec := t.previousEmbedding(m.ID)
	_, err := t.sqlTx.Exec(`
		UPDATE engine_memories SET
			content = ?, embedding = ?, type = ?, created_at = ?, last_review = ?,
			stability = ?, difficulty = ?, review_count = ?, access_count = ?,
			importance = ?, lifecycle_state = ?, file_path = ?, title = ?
		WHERE id = ?
	`,
		m.Content, encodeEmbedding(m.Embedding), string(m.Type),
		m.CreatedAt.Format(timeLayout), m.LastReview.Format(timeLayout),
		m.Stability, m.Difficulty, m.ReviewCount, m.AccessCount,
		m.Importance, string(m.LifecycleState), nullableString(m.FilePath), nullableString(m.Title),
		m.ID,
	)
	if err != nil {
		return err
	}

	if m.Embedding == nil {
		return nil
	}
	if err := t.index.Upsert(t.ctx, vectorindex.Entry{ID: m.ID, Embedding: m.Embedding}); err != nil {
		return err
	}
	id := m.ID
	if hadPrev {
		t.undo = append(t.undo, func() { t.index.Upsert(t.ctx, vectorindex.Entry{ID: id, Embedding: prevVec}) })
	} else {
		t.undo = append(t.undo, func() { t.index.Delete(t.ctx, id) })
	}
	return nil
}

// previousEmbedding captures the pre-update vector straight from the SQL
// row already inside this transaction, so an abort can restore the index
// to the value it had before Update ran.
func (t *engineTx) previousEmbedding(id string) (ok bool, vec []float64) {
	var b []byte
	if err := t.sqlTx.QueryRow(`SELECT embedding FROM engine_memories WHERE id = ?`, id).Scan(&b); err != nil {
		return false, nil
	}
	return true, decodeEmbedding(b)
}

func (t *engineTx) AppendAudit(entry *types.AuditEntry) error {
	_, err := t.sqlTx.Exec(`
		INSERT INTO engine_audit (id, new_content_hash, matched_id, decision, similarity, reason, degraded, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.NewContentHash, nullableString(entry.MatchedID), string(entry.Decision),
		entry.Similarity, entry.Reason, boolToInt(entry.Degraded), entry.Timestamp.Format(timeLayout),
	)
	return err
}

func (t *engineTx) AppendConflict(entry *types.ConflictEntry) error {
	_, err := t.sqlTx.Exec(`
		INSERT INTO memory_conflicts (id, memory_a, memory_b, similarity, contradiction, detected_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.MemoryAID, entry.MemoryBID, entry.Similarity,
		entry.ContradictionScore, entry.DetectedAt.Format(timeLayout), boolToInt(entry.Resolved),
	)
	return err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
