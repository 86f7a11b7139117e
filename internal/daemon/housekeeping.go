package daemon

import (
	"context"
	"time"

	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/embedding"
)

// DefaultHousekeepInterval is how often Housekeeper runs its maintenance
// pass when the caller doesn't override it.
const DefaultHousekeepInterval = 1 * time.Hour

// Housekeeper runs periodic, non-mutating maintenance distinct from
// lifecycle evaluation (which stays lazy, computed on read, never run as a
// background sweep): a SQLite VACUUM/WAL checkpoint and an
// embedding-provider availability re-probe, on an interval. It never
// touches a memory record.
type Housekeeper struct {
	db       *database.Database
	embedder embedding.Provider
	interval time.Duration
}

// NewHousekeeper builds a Housekeeper over db and embedder. interval <= 0
// falls back to DefaultHousekeepInterval.
func NewHousekeeper(db *database.Database, embedder embedding.Provider, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = DefaultHousekeepInterval
	}
	return &Housekeeper{db: db, embedder: embedder, interval: interval}
}

// Run blocks, running one maintenance pass immediately and then on every
// tick of h.interval, until ctx is cancelled.
func (h *Housekeeper) Run(ctx context.Context) {
	h.pass(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pass(ctx)
		}
	}
}

func (h *Housekeeper) pass(ctx context.Context) {
	if err := h.db.Checkpoint(); err != nil {
		log.Warn("housekeeping: WAL checkpoint failed", "error", err)
	}
	if err := h.db.Vacuum(); err != nil {
		log.Warn("housekeeping: vacuum failed", "error", err)
	}

	available := h.embedder.IsAvailable(ctx)
	log.Info("housekeeping pass complete", "embedding_provider_available", available)
}
