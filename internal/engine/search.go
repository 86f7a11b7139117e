package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/lifecycle"
	"github.com/synapsedb/mnemosyne/internal/scorer"
	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/types"
	"github.com/synapsedb/mnemosyne/internal/vecmath"
)

// SearchInput bundles a query and the result-set shape the caller wants.
// CandidateLimit ("M") bounds the candidate fetch before ranking;
// ResultLimit ("N") bounds what's returned after ranking.
type SearchInput struct {
	Query           string
	CandidateLimit  int
	ResultLimit     int
	IncludeArchived bool
	Now             time.Time
}

// SearchHit is one ranked result together with the signals that produced
// its score.
type SearchHit struct {
	Record   *types.Memory
	Score    float64
	Signals  scorer.Signals
	State    types.LifecycleState
	Degraded bool
}

// Search runs the read path: embed query → fetch top-M candidates →
// decay-adjust retrievability → composite score → rank → testing-effect
// strengthening on every returned result. If the embedding provider
// is unavailable and degraded search is enabled on a store that supports
// keyword search, it falls back to the FTS5 index instead of failing
// outright.
func (e *Engine) Search(ctx context.Context, in SearchInput) ([]SearchHit, error) {
	if in.Query == "" {
		return nil, newError(KindConfigInvalid, "query must not be empty", nil)
	}
	now := e.resolveNow(in.Now)

	candidateLimit := in.CandidateLimit
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	resultLimit := in.ResultLimit
	if resultLimit <= 0 {
		resultLimit = 10
	}

	filter := store.Filter{ExcludeArchived: !in.IncludeArchived}

	matches, ok, degraded, err := e.fetchCandidates(ctx, in.Query, candidateLimit, filter)
	if err != nil {
		return nil, err
	}
	if !in.IncludeArchived {
		kept := matches[:0]
		for _, m := range matches {
			if !lifecycle.IsArchived(e.lifecycle, m.Record, now) {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	if !ok || len(matches) == 0 {
		return nil, nil
	}

	weights := e.scorer
	if degraded {
		weights = weights.Redistributed()
	}

	maxReviewCount := 0
	for _, m := range matches {
		if m.Record.ReviewCount > maxReviewCount {
			maxReviewCount = m.Record.ReviewCount
		}
	}

	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		siblingHits := 0
		for _, other := range matches {
			if other.Record.ID == m.Record.ID {
				continue
			}
			if other.Similarity >= e.gate.MediumMatch {
				siblingHits++
			}
		}
		signals := scorer.BuildSignals(m.Record, now, m.Similarity, maxReviewCount, siblingHits, len(matches))
		if degraded {
			signals.SemanticSimilarity = 0
		}
		score := scorer.Score(weights, signals)
		state := lifecycle.Evaluate(e.lifecycle, m.Record, now)
		hits = append(hits, SearchHit{Record: m.Record, Score: score, Signals: signals, State: state, Degraded: degraded})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.LastReview.After(hits[j].Record.LastReview)
	})

	if resultLimit < len(hits) {
		hits = hits[:resultLimit]
	}

	if err := e.applyTestingEffect(ctx, hits, now); err != nil {
		return nil, err
	}

	return hits, nil
}

// fetchCandidates embeds query and fetches its nearest neighbors, falling
// back to the store's keyword search when the embedding provider is
// unavailable, degraded search is enabled, and the store supports it.
func (e *Engine) fetchCandidates(ctx context.Context, query string, limit int, filter store.Filter) (matches []store.Match, ok bool, degraded bool, err error) {
	embCtx, cancel := embedding.WithTimeout(ctx, 0)
	defer cancel()
	vec, embedErr := e.embedder.Embed(embCtx, query)
	if embedErr == nil {
		vec = vecmath.Normalize(vec)
		matches, ok, err = e.store.Nearest(ctx, vec, limit, filter)
		if err != nil {
			return nil, false, false, fmt.Errorf("candidate fetch failed: %w", err)
		}
		return matches, ok, false, nil
	}

	searcher, supportsKeyword := e.store.(store.KeywordSearcher)
	if !e.allowDegradedSearch || !supportsKeyword {
		return nil, false, false, newError(KindEmbeddingUnavailable,
			"failed to embed query; no non-semantic fallback configured", embedErr)
	}

	matches, err = searcher.KeywordSearch(ctx, query, limit, filter)
	if err != nil {
		return nil, false, false, fmt.Errorf("degraded keyword search failed: %w", err)
	}
	return matches, true, true, nil
}

// applyTestingEffect strengthens every returned result: similarity
// at or above HIGH_MATCH counts as a successful recall (grade=Good);
// MEDIUM_MATCH..HIGH_MATCH counts as a harder recall (grade=Hard).
// access_count is bumped unconditionally on every returned result; below
// MEDIUM_MATCH no scheduler update is applied, only the access-count bump.
func (e *Engine) applyTestingEffect(ctx context.Context, hits []SearchHit, now time.Time) error {
	for i, h := range hits {
		var grade types.Grade
		strengthen := false
		switch {
		case h.Signals.SemanticSimilarity >= e.gate.HighMatch:
			grade, strengthen = types.GradeGood, true
		case h.Signals.SemanticSimilarity >= e.gate.MediumMatch:
			grade, strengthen = types.GradeHard, true
		}

		var updated *types.Memory
		err := e.store.Transaction(ctx, func(tx store.Tx) error {
			current, fErr := tx.FetchByID(h.Record.ID)
			if fErr != nil {
				return fErr
			}
			if strengthen {
				current = e.reinforceRecord(current, now, grade)
			} else {
				current.AccessCount++
			}
			if uErr := tx.Update(current); uErr != nil {
				return uErr
			}
			updated = current
			return nil
		})
		if err != nil {
			return fmt.Errorf("testing-effect update failed for %s: %w", h.Record.ID, err)
		}
		hits[i].Record = updated
	}
	return nil
}
