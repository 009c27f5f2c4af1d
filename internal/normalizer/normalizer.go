// Package normalizer turns raw query text into a QueryContext: cleaned
// text, deduplicated keywords, and an optional kind filter inferred from
// trigger phrases.
package normalizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dhollis/twinrag/pkg/types"
)

// stopwords are dropped from the keyword set. Short list on purpose:
// over-aggressive removal hurts keyword backfill more than it helps.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"with": {}, "about": {}, "as": {}, "by": {}, "from": {},
	"what": {}, "which": {}, "who": {}, "how": {}, "when": {}, "where": {},
	"do": {}, "does": {}, "did": {}, "have": {}, "has": {}, "had": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "they": {},
	"me": {}, "my": {}, "your": {}, "their": {}, "this": {}, "that": {},
	"tell": {}, "show": {},
}

// triggerPhrases maps phrases in the normalized query to a kind filter.
// A phrase matches as a substring of the normalized text. If phrases for
// more than one kind match, the filter stays empty: an over-broad search
// beats a wrong filter.
var triggerPhrases = map[string]types.Kind{
	"work history":       types.KindExperience,
	"work experience":    types.KindExperience,
	"previous role":      types.KindExperience,
	"previous roles":     types.KindExperience,
	"past jobs":          types.KindExperience,
	"employment":         types.KindExperience,
	"career":             types.KindExperience,
	"side project":       types.KindProject,
	"side projects":      types.KindProject,
	"personal project":   types.KindProject,
	"personal projects":  types.KindProject,
	"portfolio":          types.KindProject,
	"built":              types.KindProject,
	"skill set":          types.KindSkill,
	"skills":             types.KindSkill,
	"technologies":       types.KindSkill,
	"tech stack":         types.KindSkill,
	"proficient":         types.KindSkill,
	"education":          types.KindEducation,
	"degree":             types.KindEducation,
	"studied":            types.KindEducation,
	"university":         types.KindEducation,
	"certification":      types.KindEducation,
	"certifications":     types.KindEducation,
	"achievement":        types.KindAchievement,
	"achievements":       types.KindAchievement,
	"award":              types.KindAchievement,
	"awards":             types.KindAchievement,
	"accomplishment":     types.KindAchievement,
	"accomplishments":    types.KindAchievement,
	"about yourself":     types.KindNarrative,
	"personal statement": types.KindNarrative,
	"background story":   types.KindNarrative,
	"biography":          types.KindNarrative,
}

// Normalize lowercases and cleans raw query text, extracts keywords, and
// infers a kind filter. Returns types.ErrInvalidQuery when no keywords
// survive normalization, so callers never issue an embedding call for an
// empty query. TopK and MinSimilarity on the returned context are zero;
// the pipeline fills them in.
func Normalize(raw string) (*types.QueryContext, error) {
	normalized := normalizeText(raw)
	keywords := extractKeywords(normalized)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("query %q has no usable keywords: %w", raw, types.ErrInvalidQuery)
	}

	return &types.QueryContext{
		RawText:        raw,
		NormalizedText: normalized,
		Keywords:       keywords,
		KindFilter:     inferKind(normalized),
	}, nil
}

// normalizeText lowercases, replaces punctuation with spaces, and
// collapses runs of whitespace.
func normalizeText(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// extractKeywords tokenizes normalized text, drops stopwords, and dedupes
// while preserving first-occurrence order.
func extractKeywords(normalized string) []string {
	tokens := strings.Fields(normalized)
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// inferKind returns the single kind whose trigger phrases match the
// normalized text, or empty when zero or multiple kinds match.
func inferKind(normalized string) types.Kind {
	padded := " " + normalized + " "
	var matched types.Kind
	for phrase, kind := range triggerPhrases {
		if !strings.Contains(padded, " "+phrase+" ") {
			continue
		}
		if matched != "" && matched != kind {
			return ""
		}
		matched = kind
	}
	return matched
}
