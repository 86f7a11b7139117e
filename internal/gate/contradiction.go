package gate

import (
	"regexp"
	"strings"
)

// negationMarkers is the conservative set of tokens whose presence in one
// text but not the other, combined with low token overlap, flags a
// contradiction. Precision matters more than recall here, so the list is
// short and specific rather than exhaustive.
var negationMarkers = []string{
	"not", "never", "no longer", "doesn't", "does not", "isn't", "is not",
	"won't", "will not", "can't", "cannot", "without", "stopped", "disabled",
	"false", "incorrect", "wrong",
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(s string) map[string]bool {
	tokens := tokenPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// tokenOverlap returns the overlap coefficient |A∩B| / min(|A|,|B|) between
// the token sets of a and b. The overlap coefficient (rather than Jaccard)
// is used because a short negated restatement of a longer sentence should
// still register as near-total overlap with the shorter set.
func tokenOverlap(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}

	minLen := len(setA)
	if len(setB) < minLen {
		minLen = len(setB)
	}
	return float64(intersection) / float64(minLen)
}

func countNegations(s string) int {
	lower := " " + strings.ToLower(s) + " "
	n := 0
	for _, marker := range negationMarkers {
		n += strings.Count(lower, " "+marker+" ")
	}
	return n
}

// negationDiverges reports whether a and b disagree on negation presence:
// one contains a negation marker and the other does not.
func negationDiverges(a, b string) bool {
	na := countNegations(a) > 0
	nb := countNegations(b) > 0
	return na != nb
}

// ContradictionThreshold is the default minimum surface-token overlap a
// pair of texts must share before negation divergence is trusted as a real
// contradiction rather than two unrelated statements that happen to each
// mention a negation marker.
//
// Genuine contradictions in practice are near-identical sentences with a
// negation flipped ("the API uses bearer tokens" / "the API does not use
// bearer tokens"), which have HIGH surface overlap, not low — two sentences
// about unrelated topics that both happen to contain "not" are not a
// contradiction. So the gate requires overlap at or above this floor,
// not below it.
const ContradictionThreshold = 0.3

// IsContradiction applies the conservative heuristic: high embedding
// similarity is already established by the caller; this adds a surface
// overlap floor (same topic, same phrasing) plus negation divergence.
func IsContradiction(a, b string, overlapThreshold float64) (contradictory bool, overlap float64) {
	overlap = tokenOverlap(a, b)
	if overlap < overlapThreshold {
		return false, overlap
	}
	return negationDiverges(a, b), overlap
}
