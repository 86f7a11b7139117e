package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/synapsedb/mnemosyne/internal/gate"
	"github.com/synapsedb/mnemosyne/internal/lifecycle"
	"github.com/synapsedb/mnemosyne/internal/scheduler"
	"github.com/synapsedb/mnemosyne/internal/scorer"
)

// weightSumEpsilon is the floating-point tolerance the scorer weight-sum
// check allows; it is not a design slack.
const weightSumEpsilon = 1e-9

// EngineConfig holds the tunables for the cognitive memory engine: the
// PE gate's similarity thresholds, the composite scorer's signal weights,
// and the lifecycle state machine's cutoffs. The FSRS weight vector
// itself is process-wide read-only and is not exposed for per-deployment
// tuning; only an escape hatch to pin an alternate canonical set is
// provided via FSRSConfig.Weights for operators upgrading from a
// different published weight set (see DESIGN.md's Open Question
// decision).
type EngineConfig struct {
	Gate      GateConfig      `mapstructure:"gate"`
	Scorer    ScorerConfig    `mapstructure:"scorer"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	FSRS      FSRSConfig      `mapstructure:"fsrs"`
}

// GateConfig mirrors gate.Thresholds for config-file overrides.
type GateConfig struct {
	Duplicate            float64 `mapstructure:"duplicate"`
	HighMatch             float64 `mapstructure:"high_match"`
	MediumMatch           float64 `mapstructure:"medium_match"`
	ContradictionOverlap  float64 `mapstructure:"contradiction_overlap"`
	CandidateK            int     `mapstructure:"candidate_k"`
}

// ScorerConfig mirrors scorer.Weights for config-file overrides. Must sum
// to 1.0.
type ScorerConfig struct {
	SemanticSimilarity float64 `mapstructure:"semantic_similarity"`
	Retrievability     float64 `mapstructure:"retrievability"`
	Recency            float64 `mapstructure:"recency"`
	Importance         float64 `mapstructure:"importance"`
	ReviewCount        float64 `mapstructure:"review_count"`
	CoActivation       float64 `mapstructure:"co_activation"`
}

// LifecycleConfig mirrors lifecycle.Thresholds for config-file overrides.
type LifecycleConfig struct {
	HotRetrievability  float64 `mapstructure:"hot_retrievability"`
	HotMaxDaysIdle     float64 `mapstructure:"hot_max_days_idle"`
	WarmRetrievability float64 `mapstructure:"warm_retrievability"`
	ColdRetrievability float64 `mapstructure:"cold_retrievability"`
	ArchivedDays       float64 `mapstructure:"archived_days"`
	ArchivedMaxR       float64 `mapstructure:"archived_max_r"`
}

// FSRSConfig optionally pins an alternate published FSRS weight set. A
// zero-length Weights means "use scheduler.DefaultWeights()".
type FSRSConfig struct {
	Weights []float64 `mapstructure:"weights"`
}

// DefaultEngineConfig returns the canonical gate, scorer, and lifecycle
// tunables.
func DefaultEngineConfig() EngineConfig {
	g := gate.DefaultThresholds()
	s := scorer.DefaultWeights()
	l := lifecycle.DefaultThresholds()
	return EngineConfig{
		Gate: GateConfig{
			Duplicate: g.Duplicate, HighMatch: g.HighMatch, MediumMatch: g.MediumMatch,
			ContradictionOverlap: g.ContradictionOverlap, CandidateK: g.CandidateK,
		},
		Scorer: ScorerConfig{
			SemanticSimilarity: s.SemanticSimilarity, Retrievability: s.Retrievability,
			Recency: s.Recency, Importance: s.Importance, ReviewCount: s.ReviewCount,
			CoActivation: s.CoActivation,
		},
		Lifecycle: LifecycleConfig{
			HotRetrievability: l.HotRetrievability, HotMaxDaysIdle: l.HotMaxDaysIdle,
			WarmRetrievability: l.WarmRetrievability, ColdRetrievability: l.ColdRetrievability,
			ArchivedDays: l.ArchivedDays, ArchivedMaxR: l.ArchivedMaxR,
		},
	}
}

func setEngineDefaults(v *viper.Viper) {
	d := DefaultEngineConfig()
	v.SetDefault("engine.gate.duplicate", d.Gate.Duplicate)
	v.SetDefault("engine.gate.high_match", d.Gate.HighMatch)
	v.SetDefault("engine.gate.medium_match", d.Gate.MediumMatch)
	v.SetDefault("engine.gate.contradiction_overlap", d.Gate.ContradictionOverlap)
	v.SetDefault("engine.gate.candidate_k", d.Gate.CandidateK)

	v.SetDefault("engine.scorer.semantic_similarity", d.Scorer.SemanticSimilarity)
	v.SetDefault("engine.scorer.retrievability", d.Scorer.Retrievability)
	v.SetDefault("engine.scorer.recency", d.Scorer.Recency)
	v.SetDefault("engine.scorer.importance", d.Scorer.Importance)
	v.SetDefault("engine.scorer.review_count", d.Scorer.ReviewCount)
	v.SetDefault("engine.scorer.co_activation", d.Scorer.CoActivation)

	v.SetDefault("engine.lifecycle.hot_retrievability", d.Lifecycle.HotRetrievability)
	v.SetDefault("engine.lifecycle.hot_max_days_idle", d.Lifecycle.HotMaxDaysIdle)
	v.SetDefault("engine.lifecycle.warm_retrievability", d.Lifecycle.WarmRetrievability)
	v.SetDefault("engine.lifecycle.cold_retrievability", d.Lifecycle.ColdRetrievability)
	v.SetDefault("engine.lifecycle.archived_days", d.Lifecycle.ArchivedDays)
	v.SetDefault("engine.lifecycle.archived_max_r", d.Lifecycle.ArchivedMaxR)
}

// Validate enforces the composite scorer's weights summing to exactly 1.0
// (within floating point tolerance) and a positive gate.candidate_k.
// Everything else in EngineConfig is a tunable threshold and is not
// checked.
func (c EngineConfig) Validate() error {
	sum := c.Scorer.SemanticSimilarity + c.Scorer.Retrievability + c.Scorer.Recency +
		c.Scorer.Importance + c.Scorer.ReviewCount + c.Scorer.CoActivation
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("scorer weights must sum to 1.0, got %v", sum)
	}
	if c.Gate.CandidateK <= 0 {
		return fmt.Errorf("gate.candidate_k must be positive")
	}
	return nil
}

// GateThresholds converts the config into gate.Thresholds.
func (c EngineConfig) GateThresholds() gate.Thresholds {
	return gate.Thresholds{
		Duplicate: c.Gate.Duplicate, HighMatch: c.Gate.HighMatch, MediumMatch: c.Gate.MediumMatch,
		ContradictionOverlap: c.Gate.ContradictionOverlap, CandidateK: c.Gate.CandidateK,
	}
}

// ScorerWeights converts the config into scorer.Weights.
func (c EngineConfig) ScorerWeights() scorer.Weights {
	return scorer.Weights{
		SemanticSimilarity: c.Scorer.SemanticSimilarity, Retrievability: c.Scorer.Retrievability,
		Recency: c.Scorer.Recency, Importance: c.Scorer.Importance,
		ReviewCount: c.Scorer.ReviewCount, CoActivation: c.Scorer.CoActivation,
	}
}

// LifecycleThresholds converts the config into lifecycle.Thresholds.
func (c EngineConfig) LifecycleThresholds() lifecycle.Thresholds {
	return lifecycle.Thresholds{
		HotRetrievability: c.Lifecycle.HotRetrievability, HotMaxDaysIdle: c.Lifecycle.HotMaxDaysIdle,
		WarmRetrievability: c.Lifecycle.WarmRetrievability, ColdRetrievability: c.Lifecycle.ColdRetrievability,
		ArchivedDays: c.Lifecycle.ArchivedDays, ArchivedMaxR: c.Lifecycle.ArchivedMaxR,
	}
}

// SchedulerWeights returns the configured FSRS weight vector, falling
// back to the canonical defaults when none was pinned in config.
func (c EngineConfig) SchedulerWeights() scheduler.Weights {
	if len(c.FSRS.Weights) != 17 {
		return scheduler.DefaultWeights()
	}
	var w scheduler.Weights
	copy(w[:], c.FSRS.Weights)
	return w
}
