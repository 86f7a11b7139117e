package database

import (
	"database/sql"
	"fmt"
)

// RunMigrations checks the current schema version and runs any pending
// migrations. There is a single engine schema today (SchemaVersion 1,
// created directly by InitSchema on a fresh database), so this only
// matters for a database initialized by an older build of this binary;
// it's kept as the hook future schema changes land in.
func (d *Database) RunMigrations() error {
	version, err := d.GetSchemaVersion()
	if err != nil {
		version = 0
	}

	log.Info("checking migrations", "current_version", version, "target_version", SchemaVersion)

	if version >= SchemaVersion {
		log.Debug("database is up to date")
		return nil
	}

	if version < 1 {
		if err := migrateToEngineSchema(d.db); err != nil {
			return fmt.Errorf("migration to engine schema failed: %w", err)
		}
	}

	return nil
}

// migrateToEngineSchema brings a database that predates the engine schema
// up to SchemaVersion 1. Additive only: it never touches existing rows.
func migrateToEngineSchema(db *sql.DB) error {
	log.Info("running migration to engine schema")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(EngineSchema); err != nil {
		return fmt.Errorf("failed to create engine schema: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO schema_version (version, applied_at)
		VALUES (1, CURRENT_TIMESTAMP)
	`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	log.Info("migration to engine schema completed successfully")
	return nil
}
