// Package engine wires together the pure components — the type
// classifier, FSRS scheduler, attention decay, prediction-error gate,
// composite scorer, and lifecycle state machine — into the two mutating
// orchestrators: Save and Search. The engine itself never reads process
// environment or parses configuration files; it is handed
// already-validated weights and a Store/embedding.Provider at
// construction time, keeping env/config reading a collaborator's job.
package engine

import (
	"math"

	"github.com/synapsedb/mnemosyne/internal/classifier"
	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/gate"
	"github.com/synapsedb/mnemosyne/internal/lifecycle"
	"github.com/synapsedb/mnemosyne/internal/scheduler"
	"github.com/synapsedb/mnemosyne/internal/scorer"
	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/types"
)

// configEpsilon is the tolerance the scorer-weight-sum check allows for
// floating point accumulation, not a design slack.
const configEpsilon = 1e-9

// Engine is the single entry point orchestrators and callers above the
// store use. It holds no mutable state of its own beyond what's handed to
// it at construction; every computation is delegated to the relevant
// pure package.
type Engine struct {
	store     store.Store
	embedder  embedding.Provider
	weights   scheduler.Weights
	gate      gate.Thresholds
	scorer    scorer.Weights
	lifecycle lifecycle.Thresholds

	maxRetries          int
	allowDegradedSearch bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithWeights overrides the FSRS weight vector. Defaults to
// scheduler.DefaultWeights().
func WithWeights(w scheduler.Weights) Option { return func(e *Engine) { e.weights = w } }

// WithGateThresholds overrides the PE gate's similarity cutoffs. Defaults
// to gate.DefaultThresholds().
func WithGateThresholds(t gate.Thresholds) Option { return func(e *Engine) { e.gate = t } }

// WithScorerWeights overrides the composite scorer's signal weights.
// Defaults to scorer.DefaultWeights(). Must sum to 1.0 or New returns a
// ConfigInvalid error.
func WithScorerWeights(w scorer.Weights) Option { return func(e *Engine) { e.scorer = w } }

// WithLifecycleThresholds overrides the tier state machine's cutoffs.
// Defaults to lifecycle.DefaultThresholds().
func WithLifecycleThresholds(t lifecycle.Thresholds) Option {
	return func(e *Engine) { e.lifecycle = t }
}

// WithMaxRetries overrides how many times Save retries a StoreConflict
// with jittered backoff before surfacing it. Defaults to 3.
func WithMaxRetries(n int) Option { return func(e *Engine) { e.maxRetries = n } }

// WithDegradedSearch enables the FTS5 keyword-search fallback when
// the embedding provider is unavailable at query time. The store passed to
// New must implement store.KeywordSearcher for this to take effect;
// otherwise Search still surfaces EmbeddingUnavailable.
func WithDegradedSearch(allow bool) Option {
	return func(e *Engine) { e.allowDegradedSearch = allow }
}

// New builds an Engine over s and embedder, applying opts. It validates
// that the composite scorer's weights sum to exactly 1.0 before
// returning, failing fast with KindConfigInvalid rather than letting a
// misconfigured weight table silently skew every ranked search.
func New(s store.Store, embedder embedding.Provider, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:      s,
		embedder:   embedder,
		weights:    scheduler.DefaultWeights(),
		gate:       gate.DefaultThresholds(),
		scorer:     scorer.DefaultWeights(),
		lifecycle:  lifecycle.DefaultThresholds(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(e)
	}

	if math.Abs(e.scorer.Sum()-1.0) > configEpsilon {
		return nil, newError(KindConfigInvalid,
			"composite scorer weights must sum to 1.0", nil)
	}

	return e, nil
}

// classify is the engine's thin wrapper around the pure classifier
// package, kept here so save.go reads as "classify, embed, gate,
// schedule, persist" without an extra import at each call site.
func (e *Engine) classify(input classifier.Input) types.Classification {
	return classifier.Classify(input)
}
