// Package scorer combines multiple normalised signals into the single
// ranking score the search orchestrator sorts candidates by.
package scorer

import (
	"math"
	"time"

	"github.com/synapsedb/mnemosyne/internal/decay"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// Weights are the composite scorer's signal weights. They must sum to
// 1.0; config validation enforces this at load time (ConfigInvalid
// otherwise), not the scorer itself.
type Weights struct {
	SemanticSimilarity float64
	Retrievability     float64
	Recency            float64
	Importance         float64
	ReviewCount        float64
	CoActivation       float64
}

// DefaultWeights returns the canonical weight table.
func DefaultWeights() Weights {
	return Weights{
		SemanticSimilarity: 0.40,
		Retrievability:     0.15,
		Recency:            0.15,
		Importance:         0.15,
		ReviewCount:        0.10,
		CoActivation:       0.05,
	}
}

// Sum returns the total of all six weights, used by config validation.
func (w Weights) Sum() float64 {
	return w.SemanticSimilarity + w.Retrievability + w.Recency +
		w.Importance + w.ReviewCount + w.CoActivation
}

// Redistributed returns a copy of w with SemanticSimilarity zeroed and its
// weight spread proportionally across the remaining five signals, so they
// still sum to 1.0. Used for one degraded-search call at a time;
// it never mutates the configured weight table itself.
func (w Weights) Redistributed() Weights {
	remainder := 1.0 - w.SemanticSimilarity
	if remainder <= 0 {
		return w
	}
	scale := 1.0 / remainder
	return Weights{
		SemanticSimilarity: 0,
		Retrievability:     w.Retrievability * scale,
		Recency:            w.Recency * scale,
		Importance:         w.Importance * scale,
		ReviewCount:        w.ReviewCount * scale,
		CoActivation:       w.CoActivation * scale,
	}
}

// RecencyHalfLifeDays is the exponential decay half-life used for the
// recency signal, independent of the FSRS half-life used for retention.
const RecencyHalfLifeDays = 30.0

// Signals are the six already-computed, already-normalised [0,1] inputs
// for one candidate.
type Signals struct {
	SemanticSimilarity float64
	Retrievability     float64
	Recency            float64
	Importance         float64
	ReviewCount        float64
	CoActivation       float64
}

// Score applies the weight table to a Signals bundle and returns the
// ranking score in [0,1] (assuming each signal is already normalised, and
// weights sum to 1.0).
func Score(w Weights, s Signals) float64 {
	return w.SemanticSimilarity*s.SemanticSimilarity +
		w.Retrievability*s.Retrievability +
		w.Recency*s.Recency +
		w.Importance*s.Importance +
		w.ReviewCount*s.ReviewCount +
		w.CoActivation*s.CoActivation
}

// RecencyScore computes the exponential-decay recency signal for a memory
// last reviewed at lastReview, as of now.
func RecencyScore(lastReview, now time.Time) float64 {
	elapsedDays := now.Sub(lastReview).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	lambda := math.Ln2 / RecencyHalfLifeDays
	return math.Exp(-lambda * elapsedDays)
}

// ReviewCountScore log-normalises review_count against a running maximum
// seen in the current candidate set (N_max).
func ReviewCountScore(reviewCount, maxReviewCount int) float64 {
	if maxReviewCount <= 0 {
		return 0
	}
	return math.Log(1+float64(reviewCount)) / math.Log(1+float64(maxReviewCount))
}

// CoActivationScore counts how many other candidates in the same top-K
// result set are "siblings" (above a similarity floor to the query),
// normalised by the candidate set size.
func CoActivationScore(siblingHits, candidateSetSize int) float64 {
	if candidateSetSize <= 0 {
		return 0
	}
	return float64(siblingHits) / float64(candidateSetSize)
}

// BuildSignals assembles the six signals for one candidate given the raw
// inputs a caller (the search orchestrator) has on hand. semanticSimilarity
// is assumed already in [0,1] (cosine similarity clamped non-negative).
func BuildSignals(m *types.Memory, now time.Time, semanticSimilarity float64, maxReviewCount, siblingHits, candidateSetSize int) Signals {
	r := decay.RetrievabilityNow(m, now)
	sim := semanticSimilarity
	if sim < 0 {
		sim = 0
	}
	return Signals{
		SemanticSimilarity: sim,
		Retrievability:     r,
		Recency:            RecencyScore(m.LastReview, now),
		Importance:         clamp01(m.Importance),
		ReviewCount:        ReviewCountScore(m.ReviewCount, maxReviewCount),
		CoActivation:       CoActivationScore(siblingHits, candidateSetSize),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
