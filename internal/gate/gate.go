// Package gate implements the prediction-error admission gate: given a
// candidate memory and a set of nearest-neighbor matches already fetched
// from the store, decide create / reinforce / merge / reject.
//
// The gate never calls the store itself; it is handed candidates and
// returns a decision, keeping it a pure function of its inputs per the
// separation of concerns the engine package is built around.
package gate

import (
	"sort"
	"strconv"

	"github.com/synapsedb/mnemosyne/internal/types"
)

// Thresholds are the fixed similarity cutoffs plus the contradiction
// detector's surface-overlap floor.
type Thresholds struct {
	Duplicate             float64
	HighMatch              float64
	MediumMatch            float64
	ContradictionOverlap   float64
	CandidateK             int
}

// DefaultThresholds returns the canonical gate constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Duplicate:            0.95,
		HighMatch:             0.90,
		MediumMatch:           0.70,
		ContradictionOverlap:  ContradictionThreshold,
		CandidateK:            5,
	}
}

// Candidate is one nearest-neighbor match the store already computed.
type Candidate struct {
	Record     *types.Memory
	Similarity float64
}

// Evaluate runs the gate's branching logic over an already-fetched
// candidate set. degraded should be true when the similarity index itself
// was unavailable (the caller passed an empty candidate list because it
// couldn't query, not because there genuinely were no matches); this
// always falls through to CREATE with the result's Degraded flag set.
func Evaluate(content string, candidates []Candidate, degraded bool, t Thresholds) types.GateResult {
	if degraded {
		return types.GateResult{
			Decision: types.DecisionCreate,
			Reason:   "similarity index unavailable, admitting unconditionally",
			Degraded: true,
		}
	}

	if len(candidates) == 0 {
		return types.GateResult{
			Decision: types.DecisionCreate,
			Reason:   "no existing candidates",
		}
	}

	top := topCandidate(candidates)
	s1 := top.Similarity

	switch {
	case s1 >= t.Duplicate:
		return types.GateResult{
			Decision:   types.DecisionReject,
			MatchedID:  top.Record.ID,
			Similarity: s1,
			Reason:     "similarity at or above duplicate threshold",
		}

	case s1 >= t.HighMatch:
		contradictory, overlap := IsContradiction(content, top.Record.Content, t.ContradictionOverlap)
		if contradictory {
			return types.GateResult{
				Decision:   types.DecisionCreate,
				MatchedID:  top.Record.ID,
				Similarity: s1,
				Reason:     "high similarity but contradictory (overlap=" + formatFloat(overlap) + ")",
			}
		}
		return types.GateResult{
			Decision:   types.DecisionReinforce,
			MatchedID:  top.Record.ID,
			Similarity: s1,
			Reason:     "high similarity, consistent content",
		}

	case s1 >= t.MediumMatch:
		return types.GateResult{
			Decision:   types.DecisionMerge,
			MatchedID:  top.Record.ID,
			Similarity: s1,
			Reason:     "medium similarity, merge candidacy",
		}

	default:
		return types.GateResult{
			Decision:   types.DecisionCreate,
			Similarity: s1,
			Reason:     "below medium-match threshold",
		}
	}
}

// topCandidate returns the highest-similarity candidate, breaking ties by
// the most recent LastReview.
func topCandidate(candidates []Candidate) Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Similarity != sorted[j].Similarity {
			return sorted[i].Similarity > sorted[j].Similarity
		}
		return sorted[i].Record.LastReview.After(sorted[j].Record.LastReview)
	})
	return sorted[0]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
