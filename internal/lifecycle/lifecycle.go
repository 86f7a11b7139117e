// Package lifecycle maps the pair (retrievability, days since access) to
// a tier; access count is not consulted. Evaluation is always lazy — there is no
// background sweep anywhere in this package or its callers.
package lifecycle

import (
	"time"

	"github.com/synapsedb/mnemosyne/internal/decay"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// Thresholds holds the tunable cutoffs for the state machine. Defaults
// match the canonical values; config may override them at load time.
type Thresholds struct {
	HotRetrievability  float64
	HotMaxDaysIdle     float64
	WarmRetrievability float64
	ColdRetrievability float64
	ArchivedDays       float64
	ArchivedMaxR       float64
}

// DefaultThresholds returns the canonical cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HotRetrievability:  0.9,
		HotMaxDaysIdle:     1,
		WarmRetrievability: 0.7,
		ColdRetrievability: 0.4,
		ArchivedDays:       180,
		ArchivedMaxR:       0.3,
	}
}

// Evaluate derives the lifecycle state for m as of now. Meta-cognitive
// records are always pinned HOT regardless of age.
func Evaluate(t Thresholds, m *types.Memory, now time.Time) types.LifecycleState {
	if types.IsMetaCognitive(m.Stability) {
		return types.StateHot
	}

	r := decay.RetrievabilityNow(m, now)
	daysSinceAccess := decay.DaysSinceAccess(m, now)

	switch {
	case r >= t.HotRetrievability && daysSinceAccess <= t.HotMaxDaysIdle:
		return types.StateHot
	case r >= t.WarmRetrievability:
		return types.StateWarm
	case daysSinceAccess >= t.ArchivedDays && r < t.ArchivedMaxR:
		return types.StateArchived
	case r >= t.ColdRetrievability:
		return types.StateCold
	default:
		return types.StateDormant
	}
}

// IsArchived is a convenience predicate Search uses to exclude archived
// records from its default results.
func IsArchived(t Thresholds, m *types.Memory, now time.Time) bool {
	return Evaluate(t, m, now) == types.StateArchived
}
