package main

import "github.com/synapsedb/mnemosyne/internal/engine"

// exitForEngineError dispatches on the orchestrator's returned error kind
// and exits with the matching code: 10 for an embedding failure, 11 for a
// storage failure, 20 for a configuration failure, 1 otherwise.
func exitForEngineError(err error) {
	switch {
	case engine.IsKind(err, engine.KindEmbeddingUnavailable):
		fail(exitEmbeddingFailure, "embedding unavailable: %v", err)
	case engine.IsKind(err, engine.KindStoreConflict):
		fail(exitStorageFailure, "storage conflict: %v", err)
	case engine.IsKind(err, engine.KindDimensionMismatch):
		fail(exitStorageFailure, "dimension mismatch: %v", err)
	case engine.IsKind(err, engine.KindConfigInvalid):
		fail(exitConfigError, "invalid request: %v", err)
	default:
		fail(1, "unexpected error: %v", err)
	}
}
