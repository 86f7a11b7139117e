package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/synapsedb/mnemosyne/internal/classifier"
	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/gate"
	"github.com/synapsedb/mnemosyne/internal/scheduler"
	"github.com/synapsedb/mnemosyne/internal/store"
	"github.com/synapsedb/mnemosyne/internal/store/vectorindex"
	"github.com/synapsedb/mnemosyne/internal/types"
	"github.com/synapsedb/mnemosyne/internal/vecmath"
)

// SaveInput bundles everything a caller supplies for a new candidate
// memory. FilePath, Title, and the frontmatter fields feed the type
// classifier; Now is injected for deterministic tests and defaults
// to time.Now() when zero.
type SaveInput struct {
	Content               string
	FilePath              string
	Title                 string
	TriggerPhrases        []string
	FrontmatterMemoryType string
	FrontmatterTier       string
	Importance            float64
	Now                   time.Time
}

// SaveResult is the tagged variant the gate's decision resolves into.
// Record is set for CREATE and MERGE; MatchedID is set for REINFORCE,
// REJECT, MERGE, and a contradictory CREATE (linking the conflicting
// prior record).
type SaveResult struct {
	Decision       types.Decision
	Record         *types.Memory
	MatchedID      string
	Similarity     float64
	Classification types.Classification
	Degraded       bool
}

func (e *Engine) resolveNow(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// Save runs the write path: classify → embed → PE gate → scheduler
// init/update → persist record + audit entry, all inside one store
// transaction so the record and its audit row commit together or not at
// all.
func (e *Engine) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	if in.Content == "" {
		return nil, newError(KindConfigInvalid, "content must not be empty", nil)
	}
	now := e.resolveNow(in.Now)

	classification := e.classify(classifier.Input{
		FilePath:               in.FilePath,
		Content:                in.Content,
		Title:                  in.Title,
		TriggerPhrases:         in.TriggerPhrases,
		FrontmatterMemoryType:  in.FrontmatterMemoryType,
		FrontmatterTier:        in.FrontmatterTier,
	})

	embCtx, cancel := embedding.WithTimeout(ctx, 0)
	defer cancel()
	vec, err := e.embedder.Embed(embCtx, in.Content)
	if err != nil {
		return nil, newError(KindEmbeddingUnavailable, "failed to embed candidate content", err)
	}
	if dim := e.embedder.Dimension(); dim > 0 && len(vec) != dim {
		return nil, newError(KindDimensionMismatch, "embedding dimension disagrees with store dimension", nil)
	}
	vec = vecmath.Normalize(vec)

	importance := in.Importance
	if importance < 0 || importance > 1 {
		importance = 0.5
	}

	hash := contentHash(in.Content)

	var result *SaveResult
	runOnce := func() error {
		return e.store.Transaction(ctx, func(tx store.Tx) error {
			matches, ok, nErr := tx.Nearest(vec, e.gate.CandidateK, store.Filter{ExcludeArchived: true})
			if nErr != nil {
				return nErr
			}
			candidates := make([]gate.Candidate, 0, len(matches))
			for _, m := range matches {
				candidates = append(candidates, gate.Candidate{Record: m.Record, Similarity: m.Similarity})
			}

			verdict := gate.Evaluate(in.Content, candidates, !ok, e.gate)

			audit := &types.AuditEntry{
				ID:             uuid.NewString(),
				NewContentHash: hash,
				MatchedID:      verdict.MatchedID,
				Decision:       verdict.Decision,
				Similarity:     verdict.Similarity,
				Reason:         verdict.Reason,
				Degraded:       verdict.Degraded,
				Timestamp:      now,
			}

			switch verdict.Decision {
			case types.DecisionReject, types.DecisionReinforce:
				matched, fErr := tx.FetchByID(verdict.MatchedID)
				if fErr != nil {
					return fErr
				}
				reinforced := e.reinforceRecord(matched, now, types.GradeGood)
				if uErr := tx.Update(reinforced); uErr != nil {
					return uErr
				}
				if aErr := tx.AppendAudit(audit); aErr != nil {
					return aErr
				}
				result = &SaveResult{
					Decision: verdict.Decision, MatchedID: reinforced.ID,
					Similarity: verdict.Similarity, Classification: classification,
					Degraded: verdict.Degraded,
				}
				return nil

			case types.DecisionMerge:
				rec := e.newRecord(in.Content, vec, classification, importance, now)
				if aErr := tx.AppendAudit(audit); aErr != nil {
					return aErr
				}
				result = &SaveResult{
					Decision: types.DecisionMerge, Record: rec, MatchedID: verdict.MatchedID,
					Similarity: verdict.Similarity, Classification: classification,
					Degraded: verdict.Degraded,
				}
				return nil

			default: // CREATE, possibly linking a contradiction
				rec := e.newRecord(in.Content, vec, classification, importance, now)
				if iErr := tx.Insert(rec); iErr != nil {
					return iErr
				}
				if verdict.MatchedID != "" {
					conflict := &types.ConflictEntry{
						ID:                 uuid.NewString(),
						MemoryAID:          verdict.MatchedID,
						MemoryBID:          rec.ID,
						Similarity:         verdict.Similarity,
						ContradictionScore: 1.0,
						DetectedAt:         now,
						Resolved:           false,
					}
					if cErr := tx.AppendConflict(conflict); cErr != nil {
						return cErr
					}
				}
				if aErr := tx.AppendAudit(audit); aErr != nil {
					return aErr
				}
				result = &SaveResult{
					Decision: types.DecisionCreate, Record: rec, MatchedID: verdict.MatchedID,
					Similarity: verdict.Similarity, Classification: classification,
					Degraded: verdict.Degraded,
				}
				return nil
			}
		})
	}

	var txErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		txErr = runOnce()
		if txErr == nil || !errors.Is(txErr, store.ErrConflict) {
			break
		}
		jitteredBackoff(attempt)
	}
	if txErr != nil {
		var dimErr *vectorindex.ErrDimensionMismatch
		if errors.As(txErr, &dimErr) {
			return nil, newError(KindDimensionMismatch, "embedding dimension disagrees with store dimension", txErr)
		}
		if errors.Is(txErr, store.ErrConflict) {
			return nil, newError(KindStoreConflict, "save transaction aborted after retries", txErr)
		}
		return nil, fmt.Errorf("save failed: %w", txErr)
	}

	return result, nil
}

// newRecord seeds a brand-new record's scheduler state from its
// classified type's half-life. The save itself counts as the first
// review and access, so both counters start at 1.
func (e *Engine) newRecord(content string, vec []float64, c types.Classification, importance float64, now time.Time) *types.Memory {
	halfLife, decays := classifier.HalfLife(c.Type)
	stability := scheduler.InitialStability(halfLife, !decays)
	difficulty := scheduler.InitialDifficulty(e.weights, types.GradeGood)

	return &types.Memory{
		ID:          uuid.NewString(),
		Content:     content,
		Embedding:   vec,
		Type:        c.Type,
		CreatedAt:   now,
		LastReview:  now,
		Stability:   stability,
		Difficulty:  difficulty,
		ReviewCount: 1,
		AccessCount: 1,
		Importance:  importance,
	}
}

// reinforceRecord applies the scheduler's successful-recall update and
// bumps both counters: review_count for the reinforcement itself,
// access_count for every retrieval including this one.
func (e *Engine) reinforceRecord(m *types.Memory, now time.Time, grade types.Grade) *types.Memory {
	elapsedDays := now.Sub(m.LastReview).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	r := scheduler.Retrievability(elapsedDays, m.Stability)
	newS, newD := scheduler.Update(e.weights, m.Stability, m.Difficulty, r, grade)

	cp := *m
	cp.Stability = newS
	cp.Difficulty = newD
	cp.LastReview = now
	cp.ReviewCount++
	cp.AccessCount++
	return &cp
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// jitteredBackoff sleeps an increasing, jittered delay between StoreConflict
// retries.
func jitteredBackoff(attempt int) {
	base := time.Duration(10*(attempt+1)) * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(5 * time.Millisecond)))
	time.Sleep(base + jitter)
}
