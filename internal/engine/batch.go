package engine

import (
	"sort"
	"time"

	"PolyCorr/internal/domain/models"
)

// AnalyzeMultiplePairs fans a multi-market trade batch out into pairwise
// analyses. When the relation graph is non-empty only declared pairs are
// analyzed; an empty graph falls back to every pair. Returned correlations
// are the findings the ledger accepted (cooldown-suppressed repeats are
// excluded).
func (e *Engine) AnalyzeMultiplePairs(tradesByMarket map[string][]models.CorrelationTrade) models.BatchResult {
	start := time.Now()

	marketIDs := make([]string, 0, len(tradesByMarket))
	for id := range tradesByMarket {
		marketIDs = append(marketIDs, id)
	}
	sort.Strings(marketIDs)

	restrictToRelated := e.graph.Len() > 0
	result := models.BatchResult{Correlations: []*models.Correlation{}}
	for i := 0; i < len(marketIDs); i++ {
		for j := i + 1; j < len(marketIDs); j++ {
			a, b := marketIDs[i], marketIDs[j]
			if restrictToRelated && !e.graph.AreRelated(a, b) {
				continue
			}
			result.TotalPairsAnalyzed++
			res, recorded := e.analyze(tradesByMarket[a], tradesByMarket[b], AnalyzeOptions{})
			if recorded {
				result.Correlations = append(result.Correlations, res.Correlation)
			}
		}
	}
	result.ProcessingTime = time.Since(start)
	return result
}
