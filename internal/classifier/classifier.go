// Package classifier maps an incoming memory's path, frontmatter, and title
// to one of the nine memory types, in strict priority order: explicit
// frontmatter, tier markers, path pattern, keyword, then a default.
package classifier

import (
	"regexp"
	"strings"

	"github.com/synapsedb/mnemosyne/internal/types"
)

// HalfLives maps each memory type to its half-life in days. A zero value
// (meta-cognitive) means "never decays" and is handled specially by the
// scheduler, not by treating zero as a literal half-life.
var HalfLives = map[types.MemoryType]float64{
	types.TypeWorking:          1,
	types.TypeEpisodic:         7,
	types.TypeProspective:      14,
	types.TypeImplicit:         30,
	types.TypeDeclarative:      60,
	types.TypeProcedural:       90,
	types.TypeSemantic:         180,
	types.TypeAutobiographical: 365,
	types.TypeMetaCognitive:    0,
}

// HalfLife returns the configured half-life for t and whether t decays at
// all (false for meta-cognitive).
func HalfLife(t types.MemoryType) (days float64, decays bool) {
	h, ok := HalfLives[t]
	if !ok {
		return HalfLives[types.TypeDeclarative], true
	}
	if t == types.TypeMetaCognitive {
		return 0, false
	}
	return h, true
}

// tierMapping is the fixed bracket-marker/importance_tier → type table.
var tierMapping = map[string]types.MemoryType{
	"constitutional": types.TypeMetaCognitive,
	"critical":       types.TypeSemantic,
	"important":      types.TypeDeclarative,
	"normal":         types.TypeDeclarative,
	"temporary":      types.TypeWorking,
	"deprecated":     types.TypeEpisodic,
}

// pathPatterns is evaluated in order; the first matching pattern wins.
// These are deliberately conservative, common-convention paths rather than
// an exhaustive classifier — see the keyword table below for the softer
// fallback layer.
var pathPatterns = []struct {
	pattern *regexp.Regexp
	typ     types.MemoryType
}{
	{regexp.MustCompile(`(?i)/?adr[s]?/`), types.TypeSemantic},
	{regexp.MustCompile(`(?i)decision[s]?\.md$`), types.TypeSemantic},
	{regexp.MustCompile(`(?i)changelog`), types.TypeEpisodic},
	{regexp.MustCompile(`(?i)session[-_]?log`), types.TypeEpisodic},
	{regexp.MustCompile(`(?i)/?runbook[s]?/`), types.TypeProcedural},
	{regexp.MustCompile(`(?i)/?howto[s]?/`), types.TypeProcedural},
	{regexp.MustCompile(`(?i)/?todo[s]?/`), types.TypeProspective},
	{regexp.MustCompile(`(?i)/?scratch/`), types.TypeWorking},
	{regexp.MustCompile(`(?i)/?profile[s]?/`), types.TypeAutobiographical},
	{regexp.MustCompile(`(?i)/?principles?\.md$`), types.TypeMetaCognitive},
}

// keywordTable is a per-type substring list scanned against the title,
// case-insensitively, row by row in table order; the first row with a
// matching keyword wins.
var keywordTable = []struct {
	keywords []string
	typ      types.MemoryType
}{
	{[]string{"remember to", "reminder", "follow up", "next time"}, types.TypeProspective},
	{[]string{"how to", "step by step", "procedure", "workflow"}, types.TypeProcedural},
	{[]string{"always", "never", "principle", "core belief"}, types.TypeMetaCognitive},
	{[]string{"happened", "today", "yesterday", "session"}, types.TypeEpisodic},
	{[]string{"scratch", "draft", "wip", "temporary"}, types.TypeWorking},
	{[]string{"i am", "my role", "about me"}, types.TypeAutobiographical},
	{[]string{"habit", "pattern of", "tends to"}, types.TypeImplicit},
}

var negationBracketPattern = regexp.MustCompile(`\[([A-Za-z]+)\]`)

// Input bundles everything the classifier may consult.
type Input struct {
	FilePath       string
	Content        string
	Title          string
	TriggerPhrases []string

	// FrontmatterMemoryType is the explicit memory_type (or memoryType)
	// frontmatter value, already extracted and quote-stripped by the
	// caller. Empty if absent.
	FrontmatterMemoryType string

	// FrontmatterTier is the explicit importance_tier frontmatter value,
	// if present.
	FrontmatterTier string
}

// Classify produces a Classification by walking the priority chain. It is a
// pure function: no I/O, no side effects.
func Classify(in Input) types.Classification {
	if explicit := strings.TrimSpace(strings.Trim(in.FrontmatterMemoryType, `"'`)); explicit != "" {
		t := types.MemoryType(strings.ToLower(explicit))
		if t.IsValid() {
			return types.Classification{Type: t, Source: types.SourceExplicit, Confidence: 1.0}
		}
	}

	if tier := strings.ToLower(strings.TrimSpace(in.FrontmatterTier)); tier != "" {
		if t, ok := tierMapping[tier]; ok {
			return types.Classification{Type: t, Source: types.SourceTier, Confidence: 0.9}
		}
	}

	if m := negationBracketPattern.FindStringSubmatch(in.Content); m != nil {
		tier := strings.ToLower(m[1])
		if t, ok := tierMapping[tier]; ok {
			return types.Classification{Type: t, Source: types.SourceTier, Confidence: 0.9}
		}
	}

	if in.FilePath != "" {
		for _, p := range pathPatterns {
			if p.pattern.MatchString(in.FilePath) {
				return types.Classification{Type: p.typ, Source: types.SourcePath, Confidence: 0.75}
			}
		}
	}

	title := strings.ToLower(in.Title)
	if title != "" {
		for _, row := range keywordTable {
			for _, kw := range row.keywords {
				if strings.Contains(title, kw) {
					return types.Classification{Type: row.typ, Source: types.SourceKeyword, Confidence: 0.6}
				}
			}
		}
	}

	return types.Classification{Type: types.TypeDeclarative, Source: types.SourceDefault, Confidence: 0.3}
}
