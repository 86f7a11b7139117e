// Package scheduler implements the FSRS-4.5 retention model: retrievability,
// stability, and difficulty updates. Every function here is a pure
// numerical transform; none of them touch a store or a clock beyond the
// "now" and "elapsed" values passed in.
package scheduler

import (
	"math"

	"github.com/synapsedb/mnemosyne/internal/types"
)

// Factor and Decay are fixed by the FSRS retrievability formula; they are
// not part of the tunable weight vector.
const (
	Factor = 19.0 / 81.0
	Decay  = 0.5
)

// MinStability and the difficulty bounds are the hard invariants every
// update clamps to.
const (
	MinStability  = 0.1
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// Weights holds the seventeen FSRS-4.5 parameters (w0..w16). It is treated
// as read-only process-wide state once loaded.
type Weights [17]float64

// DefaultWeights returns the published FSRS-4.5 canonical parameter set.
func DefaultWeights() Weights {
	return Weights{
		0.4072, 1.1829, 3.1262, 15.4722, 7.2102, 0.5316, 1.0651,
		0.0234, 1.616, 0.1544, 1.0824, 1.9813, 0.0953, 0.2975,
		2.2042, 0.2407, 2.9466,
	}
}

// Retrievability computes R(t, S), the modelled probability of recall now.
// A stability of the meta-cognitive sentinel always yields 1.0, and t=0
// always yields 1.0 regardless of S.
func Retrievability(elapsedDays float64, stability float64) float64 {
	if types.IsMetaCognitive(stability) {
		return 1.0
	}
	if elapsedDays <= 0 {
		return 1.0
	}
	r := math.Pow(1+Factor*elapsedDays/stability, -Decay)
	return r
}

// InitialStability seeds S0 for a freshly classified memory from its type's
// half-life in days. With Factor=19/81 and Decay=0.5, S0=halfLifeDays is the
// exact closed-form root of Retrievability(halfLifeDays, S0) = 0.9; when
// noDecay is set (meta-cognitive) it returns the no-decay sentinel.
func InitialStability(halfLifeDays float64, noDecay bool) float64 {
	if noDecay {
		return types.MetaCognitiveStability
	}
	if halfLifeDays < MinStability {
		return MinStability
	}
	return halfLifeDays
}

// InitialDifficulty derives D0 from the grade given at creation (default
// Good/3 when the caller has no better signal).
func InitialDifficulty(w Weights, grade types.Grade) float64 {
	d := w[4] - math.Exp(w[5]*float64(grade-1)) + 1
	return clampDifficulty(d)
}

// UpdateSuccess applies the stability and difficulty update for a
// successful recall (grade 2..4: Hard/Good/Easy).
func UpdateSuccess(w Weights, stability, difficulty, retrievability float64, grade types.Grade) (newStability, newDifficulty float64) {
	if types.IsMetaCognitive(stability) {
		return stability, difficulty
	}

	hardPenalty := 1.0
	easyBonus := 1.0
	switch grade {
	case types.GradeHard:
		hardPenalty = w[15]
	case types.GradeEasy:
		easyBonus = w[16]
	}

	sInc := math.Exp(w[8]) *
		(11 - difficulty) *
		math.Pow(stability, -w[9]) *
		(math.Exp(w[10]*(1-retrievability)) - 1) *
		hardPenalty * easyBonus

	newStability = stability * (1 + sInc)
	newStability = clampStability(newStability)

	newDifficulty = updateDifficulty(w, difficulty, grade)
	return newStability, newDifficulty
}

// UpdateFailure applies the stability and difficulty update for a failed
// recall (grade=Again).
func UpdateFailure(w Weights, stability, difficulty, retrievability float64) (newStability, newDifficulty float64) {
	if types.IsMetaCognitive(stability) {
		return stability, difficulty
	}

	newStability = w[11] *
		math.Pow(difficulty, -w[12]) *
		(math.Pow(stability+1, w[13]) - 1) *
		math.Exp(w[14]*(1-retrievability))
	newStability = clampStability(newStability)

	newDifficulty = updateDifficulty(w, difficulty, types.GradeAgain)
	return newStability, newDifficulty
}

// updateDifficulty applies the per-review delta plus mean reversion toward
// the grade-3 (Good) initial difficulty prior.
func updateDifficulty(w Weights, difficulty float64, grade types.Grade) float64 {
	delta := difficulty - w[6]*(float64(grade)-3)
	prior := InitialDifficulty(w, types.GradeGood)
	reverted := w[7]*prior + (1-w[7])*delta
	return clampDifficulty(reverted)
}

func clampStability(s float64) float64 {
	if s < MinStability {
		return MinStability
	}
	return s
}

func clampDifficulty(d float64) float64 {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Update dispatches to UpdateSuccess or UpdateFailure based on grade, and is
// the single entry point orchestrators and the gate should call.
func Update(w Weights, stability, difficulty, retrievability float64, grade types.Grade) (newStability, newDifficulty float64) {
	if grade == types.GradeAgain {
		return UpdateFailure(w, stability, difficulty, retrievability)
	}
	return UpdateSuccess(w, stability, difficulty, retrievability, grade)
}
