// Package relationships provides graph traversal over the one edge type
// the cognitive engine's core actually produces: "contradicts" edges
// written by the prediction-error gate's contradiction detector into
// the memory_conflicts table. BFS traversal over typed edges, narrowed
// to the single edge type the engine's core writes.
package relationships

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/logging"
)

var log = logging.GetLogger("relationships")

// EdgeType is always "contradicts" in this engine; the field is kept (not
// inlined away) so Edge retains the same shape conflict-graph consumers
// expect, and so a future edge source can slot in without reshaping it.
const EdgeType = "contradicts"

// Edge is one conflict-graph edge: a materialized memory_conflicts row.
type Edge struct {
	ID                 string
	SourceID           string
	TargetID           string
	Type               string
	Strength           float64 // carries contradiction_score, not similarity
	Similarity         float64
	DetectedAt         time.Time
	Resolved           bool
}

// Node is one memory reached during a graph traversal, tagged with its
// depth from the root.
type Node struct {
	MemoryID string
	Depth    int
}

// Graph is the result of a bounded BFS traversal from a root memory.
type Graph struct {
	RootID     string
	Nodes      []Node
	Edges      []Edge
	TotalNodes int
	MaxDepth   int
}

// maxGraphDepth caps MapGraph's traversal to keep the BFS frontier from
// exploding on a densely-connected store.
const maxGraphDepth = 5

// defaultGraphDepth is used when a caller requests depth <= 0.
const defaultGraphDepth = 2

// Service reads the conflict graph directly off the engine's SQLite
// tables. It performs no writes of its own: conflict entries are written
// exclusively by the save orchestrator (engine.Engine.Save) inside its
// transaction, keeping a single writer for memory_conflicts.
type Service struct {
	db *database.Database
}

// NewService builds a Service over db, which must already have
// database.EngineSchema applied (InitSchema/RunMigrations handle that).
func NewService(db *database.Database) *Service {
	return &Service{db: db}
}

const conflictColumns = `id, memory_a, memory_b, similarity, contradiction, detected_at, resolved`

func scanEdge(row interface{ Scan(dest ...interface{}) error }) (Edge, error) {
	var e Edge
	var detectedAt string
	var resolved int
	if err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Similarity, &e.Strength, &detectedAt, &resolved); err != nil {
		return Edge{}, err
	}
	e.Type = EdgeType
	e.Resolved = resolved != 0
	if t, err := time.Parse(time.RFC3339Nano, detectedAt); err == nil {
		e.DetectedAt = t
	}
	return e, nil
}

// ConflictsFor returns every conflict edge touching memoryID, in either
// direction, most recently detected first.
func (s *Service) ConflictsFor(memoryID string) ([]Edge, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("relationships: memory_id is required")
	}

	rows, err := s.db.Query(`
		SELECT `+conflictColumns+`
		FROM memory_conflicts
		WHERE memory_a = ? OR memory_b = ?
		ORDER BY detected_at DESC
	`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("relationships: query conflicts: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("relationships: scan conflict: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// MapGraph runs a bounded BFS over contradicts edges starting at rootID.
// Depth defaults to 2 when unset and is capped at 5 regardless of what
// the caller asks for.
func (s *Service) MapGraph(rootID string, depth int) (*Graph, error) {
	if rootID == "" {
		return nil, fmt.Errorf("relationships: root_id is required")
	}
	if depth <= 0 {
		depth = defaultGraphDepth
	}
	if depth > maxGraphDepth {
		depth = maxGraphDepth
	}

	visited := map[string]int{rootID: 0}
	order := []Node{{MemoryID: rootID, Depth: 0}}
	var edges []Edge
	seenEdge := map[string]bool{}

	frontier := []string{rootID}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			neighbors, err := s.ConflictsFor(id)
			if err != nil {
				return nil, err
			}
			for _, e := range neighbors {
				if !seenEdge[e.ID] {
					seenEdge[e.ID] = true
					edges = append(edges, e)
				}
				other := e.TargetID
				if other == id {
					other = e.SourceID
				}
				if _, ok := visited[other]; ok {
					continue
				}
				visited[other] = d + 1
				order = append(order, Node{MemoryID: other, Depth: d + 1})
				next = append(next, other)
			}
		}
		frontier = next
	}

	return &Graph{
		RootID:     rootID,
		Nodes:      order,
		Edges:      edges,
		TotalNodes: len(order),
		MaxDepth:   depth,
	}, nil
}

// Resolve marks a conflict entry resolved, e.g. after an operator above
// the engine has reconciled the two contradicting records by hand. The
// engine's core never calls this; it is exposed for the CLI's
// `conflicts resolve` subcommand.
func (s *Service) Resolve(conflictID string) error {
	res, err := s.db.Exec(`UPDATE memory_conflicts SET resolved = 1 WHERE id = ?`, conflictID)
	if err != nil {
		return fmt.Errorf("relationships: resolve conflict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("relationships: resolve conflict: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	log.Info("conflict resolved", "conflict_id", conflictID)
	return nil
}

// Unresolved returns every conflict entry not yet marked resolved, newest
// first, for the CLI/API's default conflicts listing.
func (s *Service) Unresolved(limit int) ([]Edge, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT `+conflictColumns+`
		FROM memory_conflicts
		WHERE resolved = 0
		ORDER BY detected_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("relationships: query unresolved: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("relationships: scan conflict: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
