package database

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// CoreSchema holds the tables every version needs: foreign-key enforcement
// and the version marker RunMigrations checks against.
const CoreSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// EngineSchema contains the cognitive memory engine's own tables: the
// engine owns its own record shape (FSRS scheduler state, audit trail,
// conflict log) rather than overloading a generic content-store schema.
const EngineSchema = `
CREATE TABLE IF NOT EXISTS engine_memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding BLOB NOT NULL,
	type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	last_review TEXT NOT NULL,
	stability REAL NOT NULL,
	difficulty REAL NOT NULL,
	review_count INTEGER NOT NULL DEFAULT 0,
	access_count INTEGER NOT NULL DEFAULT 0,
	importance REAL NOT NULL DEFAULT 0.5,
	lifecycle_state TEXT NOT NULL DEFAULT 'HOT',
	file_path TEXT,
	title TEXT
);
CREATE INDEX IF NOT EXISTS idx_engine_memories_type ON engine_memories(type);
CREATE INDEX IF NOT EXISTS idx_engine_memories_lifecycle_state ON engine_memories(lifecycle_state);
CREATE INDEX IF NOT EXISTS idx_engine_memories_last_review ON engine_memories(last_review);

CREATE TABLE IF NOT EXISTS engine_audit (
	id TEXT PRIMARY KEY,
	new_content_hash TEXT NOT NULL,
	matched_id TEXT,
	decision TEXT NOT NULL,
	similarity REAL NOT NULL,
	reason TEXT,
	degraded INTEGER NOT NULL DEFAULT 0,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engine_audit_timestamp ON engine_audit(timestamp);

CREATE TABLE IF NOT EXISTS memory_conflicts (
	id TEXT PRIMARY KEY,
	memory_a TEXT NOT NULL,
	memory_b TEXT NOT NULL,
	similarity REAL NOT NULL,
	contradiction REAL NOT NULL,
	detected_at TEXT NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_memory_conflicts_resolved ON memory_conflicts(resolved);

-- engine_memories_fts mirrors engine_memories.content for the degraded
-- keyword-search fallback: a
-- standalone FTS5 table kept in sync by triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS engine_memories_fts USING fts5(
	id UNINDEXED,
	content
);

CREATE TRIGGER IF NOT EXISTS engine_memories_fts_insert AFTER INSERT ON engine_memories BEGIN
	INSERT INTO engine_memories_fts(id, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS engine_memories_fts_delete AFTER DELETE ON engine_memories BEGIN
	DELETE FROM engine_memories_fts WHERE id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS engine_memories_fts_update AFTER UPDATE ON engine_memories BEGIN
	UPDATE engine_memories_fts SET content = new.content WHERE id = old.id;
END;
`
