// Package decay exposes the single authoritative function for "how well
// remembered is this memory right now." Every other component that needs a
// retrievability value calls RetrievabilityNow rather than recomputing
// scheduler math itself.
package decay

import (
	"time"

	"github.com/synapsedb/mnemosyne/internal/scheduler"
	"github.com/synapsedb/mnemosyne/internal/types"
)

const (
	minClamp = 1e-6
	maxClamp = 1.0
)

// RetrievabilityNow computes R for a memory as of now, clamped to
// [1e-6, 1.0]. Meta-cognitive records (stability sentinel) always return
// 1.0.
func RetrievabilityNow(m *types.Memory, now time.Time) float64 {
	elapsedDays := now.Sub(m.LastReview).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	r := scheduler.Retrievability(elapsedDays, m.Stability)
	return clamp(r)
}

func clamp(r float64) float64 {
	if r < minClamp {
		return minClamp
	}
	if r > maxClamp {
		return maxClamp
	}
	return r
}

// DaysSinceAccess returns the elapsed days since the memory's LastReview,
// the field the lifecycle state machine also uses for "days since access".
func DaysSinceAccess(m *types.Memory, now time.Time) float64 {
	d := now.Sub(m.LastReview).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
