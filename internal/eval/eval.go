// Package eval is a developer-facing retrieval-quality harness: an
// ingest → retrieve → score-report pipeline reporting recall@k and mean
// composite score against the engine's own ranked Search results. It is
// not a production code path; it exists for judging scorer-weight and
// threshold changes.
package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/synapsedb/mnemosyne/internal/engine"
)

// MemoryFixture is one memory ingested before the queries run.
type MemoryFixture struct {
	Content    string
	Importance float64
}

// QueryFixture is one labeled query: Query is issued against Search, and a
// hit counts as correct when its record's content contains ExpectedSubstr.
type QueryFixture struct {
	Query          string
	ExpectedSubstr string
}

// Fixture bundles the memories to ingest and the queries to grade them
// against, mirroring the reference benchmark's catalog-of-questions shape.
type Fixture struct {
	Memories []MemoryFixture
	Queries  []QueryFixture
}

// QueryResult is one graded query.
type QueryResult struct {
	Query   string
	Found   bool
	Rank    int // 1-based position of the first matching hit, 0 if not found
	Score   float64
}

// Report is the evaluation harness's output, mirroring the reference
// codebase's RunResults shape narrowed to the two metrics this harness
// computes.
type Report struct {
	TotalQueries int
	HitsAtK      int
	RecallAtK    float64
	MeanScore    float64
	Results      []QueryResult
}

// Run ingests fixture.Memories through eng.Save, then issues each of
// fixture.Queries through eng.Search with result limit k, grading whether
// any of the top-k hits' content contains the query's expected substring.
func Run(ctx context.Context, eng *engine.Engine, fixture Fixture, k int) (*Report, error) {
	if k <= 0 {
		k = 10
	}

	for _, m := range fixture.Memories {
		if _, err := eng.Save(ctx, engine.SaveInput{Content: m.Content, Importance: m.Importance}); err != nil {
			return nil, fmt.Errorf("eval: ingest fixture memory: %w", err)
		}
	}

	report := &Report{TotalQueries: len(fixture.Queries)}
	var scoreSum float64
	var scoredCount int

	for _, q := range fixture.Queries {
		hits, err := eng.Search(ctx, engine.SearchInput{Query: q.Query, ResultLimit: k})
		if err != nil {
			return nil, fmt.Errorf("eval: query %q: %w", q.Query, err)
		}

		result := QueryResult{Query: q.Query}
		for i, h := range hits {
			if strings.Contains(h.Record.Content, q.ExpectedSubstr) {
				result.Found = true
				result.Rank = i + 1
				result.Score = h.Score
				scoreSum += h.Score
				scoredCount++
				break
			}
		}
		if result.Found {
			report.HitsAtK++
		}
		report.Results = append(report.Results, result)
	}

	if report.TotalQueries > 0 {
		report.RecallAtK = float64(report.HitsAtK) / float64(report.TotalQueries)
	}
	if scoredCount > 0 {
		report.MeanScore = scoreSum / float64(scoredCount)
	}

	return report, nil
}

// FormatReport renders report the way the reference benchmark harness
// formats a run's results for terminal display.
func FormatReport(report *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Evaluation: %d queries\n", report.TotalQueries)
	fmt.Fprintf(&sb, "Recall@k: %.1f%% (%d/%d)\n", report.RecallAtK*100, report.HitsAtK, report.TotalQueries)
	fmt.Fprintf(&sb, "Mean composite score (hits only): %.4f\n\n", report.MeanScore)

	for _, r := range report.Results {
		status := "MISS"
		if r.Found {
			status = fmt.Sprintf("HIT  rank=%d score=%.3f", r.Rank, r.Score)
		}
		fmt.Fprintf(&sb, "  [%s] %s\n", status, r.Query)
	}
	return sb.String()
}
