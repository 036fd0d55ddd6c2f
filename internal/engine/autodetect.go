package engine

import (
	"sort"
	"strings"
	"unicode"

	"PolyCorr/internal/domain/models"
)

// Articles and prediction-market boilerplate carry no topical signal and are
// dropped before keyword comparison.
var stopWords = map[string]struct{}{
	"will": {}, "the": {}, "and": {}, "for": {}, "with": {},
	"this": {}, "that": {}, "what": {}, "when": {}, "who": {},
	"how": {}, "than": {}, "are": {}, "was": {}, "were": {},
	"before": {}, "after": {}, "above": {}, "below": {},
	"market": {}, "yes": {}, "not": {}, "any": {}, "its": {},
	"reach": {}, "happen": {}, "end": {}, "win": {},
}

// tokenizeQuestion splits a market question into lowercase alphabetic
// tokens, dropping stop words and tokens shorter than three characters.
func tokenizeQuestion(question string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens[f] = struct{}{}
	}
	return tokens
}

// AutoDetectRelations proposes KEYWORD_OVERLAP edges for every unordered
// market pair whose question token sets share at least minSharedKeywords
// tokens. Pairs that already have an edge in the graph are skipped entirely,
// so re-running detection over the same catalog never produces duplicates.
//
// Quadratic in the number of markets; intended for periodic offline runs,
// not the per-trade hot path.
func (g *RelationGraph) AutoDetectRelations(markets []models.Market, minSharedKeywords int) []models.MarketRelation {
	if minSharedKeywords < 1 {
		minSharedKeywords = 1
	}
	tokens := make([]map[string]struct{}, len(markets))
	for i, m := range markets {
		tokens[i] = tokenizeQuestion(m.Question)
	}

	var added []models.MarketRelation
	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			a, b := markets[i], markets[j]
			if a.MarketID == b.MarketID || g.AreRelated(a.MarketID, b.MarketID) {
				continue
			}
			shared := intersect(tokens[i], tokens[j])
			if len(shared) < minSharedKeywords {
				continue
			}
			smaller := len(tokens[i])
			if len(tokens[j]) < smaller {
				smaller = len(tokens[j])
			}
			strength := 0.0
			if smaller > 0 {
				strength = clamp01(float64(len(shared)) / float64(smaller))
			}
			category := a.Category
			if category == "" {
				category = b.Category
			}
			added = append(added, g.AddRelation(RelationSpec{
				MarketIDA:      a.MarketID,
				MarketIDB:      b.MarketID,
				RelationType:   models.RelationKeywordOverlap,
				Strength:       strength,
				SharedKeywords: shared,
				Category:       category,
			}))
		}
	}
	return added
}

func intersect(a, b map[string]struct{}) []string {
	if len(b) < len(a) {
		a, b = b, a
	}
	var out []string
	for tok := range a {
		if _, ok := b[tok]; ok {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}
