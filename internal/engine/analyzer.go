package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"PolyCorr/internal/domain/models"
)

// Score weights. The composite is monotonic in wallet overlap, pair count
// and volume; timing tightness rewards simultaneous pairs.
const (
	weightOverlap = 40.0
	weightPairs   = 25.0
	weightVolume  = 20.0
	weightTiming  = 15.0

	// log10(1+volume)/volumeLogCeil saturates around $1M combined volume so
	// a single whale trade cannot dominate the score.
	volumeLogCeil = 6.0
)

// Analyzer computes correlation findings from two trade sets. It holds no
// mutable state of its own; the relation graph is consulted read-only for
// flag reasons.
type Analyzer struct {
	thresholds Thresholds
	graph      *RelationGraph
	now        func() time.Time
}

// NewAnalyzer creates an analyzer. Graph may be nil.
func NewAnalyzer(t Thresholds, graph *RelationGraph) *Analyzer {
	return &Analyzer{thresholds: t, graph: graph, now: time.Now}
}

type walletTrades struct {
	trades []models.CorrelationTrade
	volume float64
}

// Analyze runs the full gate-and-score pipeline over two trade sets. It is a
// total function: malformed or empty inputs yield HasCorrelation=false,
// never an error. The returned Correlation (if any) has Status DETECTED and
// is not yet recorded anywhere.
func (a *Analyzer) Analyze(tradesA, tradesB []models.CorrelationTrade) models.AnalysisResult {
	none := models.AnalysisResult{OverlappingWallets: []string{}}
	if len(tradesA) == 0 || len(tradesB) == 0 {
		return none
	}

	cutoff := a.now().Add(-a.thresholds.AnalysisWindow).UnixMilli()
	tradesA = withinWindow(tradesA, cutoff)
	tradesB = withinWindow(tradesB, cutoff)
	if len(tradesA) == 0 || len(tradesB) == 0 {
		return none
	}

	byWalletA := groupByWallet(tradesA)
	byWalletB := groupByWallet(tradesB)

	// Cheap rejection path: no shared wallets means no correlation, before
	// any pairing or scoring work.
	overlap := make([]string, 0)
	for w := range byWalletA {
		if _, ok := byWalletB[w]; ok {
			overlap = append(overlap, w)
		}
	}
	if len(overlap) == 0 {
		return none
	}
	sort.Strings(overlap)
	result := models.AnalysisResult{OverlappingWallets: overlap}

	if len(overlap) < a.thresholds.MinOverlappingWallets {
		return result
	}

	// Pair every overlapping wallet's trades across the two markets.
	var (
		totalPairs        int
		simultaneousPairs int
		sameDirPairs      int
		oppositeDirPairs  int
	)
	simWindowMs := a.thresholds.SimultaneousWindow.Milliseconds()
	for _, w := range overlap {
		for _, ta := range byWalletA[w].trades {
			for _, tb := range byWalletB[w].trades {
				totalPairs++
				delta := ta.Timestamp - tb.Timestamp
				if delta < 0 {
					delta = -delta
				}
				if delta <= simWindowMs {
					simultaneousPairs++
				}
				if ta.Side == tb.Side {
					sameDirPairs++
				} else {
					oppositeDirPairs++
				}
			}
		}
	}
	if totalPairs < a.thresholds.MinTradePairs {
		return result
	}

	var volumeA, volumeB float64
	for _, w := range overlap {
		volumeA += byWalletA[w].volume
		volumeB += byWalletB[w].volume
	}
	combined := volumeA + volumeB
	if combined < a.thresholds.MinVolumeUSD {
		return result
	}

	score := a.score(len(overlap), walletUnion(byWalletA, byWalletB), totalPairs, len(tradesA)+len(tradesB), combined, simultaneousPairs)
	if score < a.thresholds.MinCorrelationScore {
		return result
	}

	marketA := tradesA[0].MarketID
	marketB := tradesB[0].MarketID
	corrType := classify(totalPairs, simultaneousPairs, sameDirPairs, oppositeDirPairs)
	severity := a.severity(score)

	c := &models.Correlation{
		CorrelationID:    uuid.NewString(),
		MarketIDA:        marketA,
		MarketIDB:        marketB,
		WalletAddresses:  overlap,
		WalletCount:      len(overlap),
		TradePairCount:   totalPairs,
		VolumeMarketA:    volumeA,
		VolumeMarketB:    volumeB,
		CorrelationScore: score,
		CorrelationType:  corrType,
		Severity:         severity,
		FlagReasons:      a.flagReasons(marketA, marketB, len(overlap), totalPairs, simultaneousPairs, combined),
		Status:           models.StatusDetected,
		DetectedAt:       a.now(),
	}
	result.HasCorrelation = true
	result.Correlation = c
	return result
}

func withinWindow(trades []models.CorrelationTrade, cutoffMs int64) []models.CorrelationTrade {
	out := trades[:0:0]
	for _, t := range trades {
		if t.Timestamp >= cutoffMs {
			out = append(out, t)
		}
	}
	return out
}

// groupByWallet indexes trades by lowercased wallet address. Canonicalizing
// here keeps hex-address matching case-insensitive without mutating the
// caller's slices.
func groupByWallet(trades []models.CorrelationTrade) map[string]*walletTrades {
	out := make(map[string]*walletTrades)
	for _, t := range trades {
		if t.WalletAddress == "" {
			continue
		}
		w := strings.ToLower(t.WalletAddress)
		wt, ok := out[w]
		if !ok {
			wt = &walletTrades{}
			out[w] = wt
		}
		wt.trades = append(wt.trades, t)
		wt.volume += t.SizeUSD
	}
	return out
}

func walletUnion(a, b map[string]*walletTrades) int {
	union := len(a)
	for w := range b {
		if _, ok := a[w]; !ok {
			union++
		}
	}
	return union
}

func (a *Analyzer) score(overlapCount, unionCount, pairCount, tradeCount int, combinedVolume float64, simultaneousPairs int) float64 {
	overlapRatio := 0.0
	if unionCount > 0 {
		overlapRatio = float64(overlapCount) / float64(unionCount)
	}
	pairDensity := 0.0
	if tradeCount > 0 {
		pairDensity = math.Min(1, float64(pairCount)/float64(tradeCount))
	}
	volumeRatio := math.Min(1, math.Log10(1+combinedVolume)/volumeLogCeil)
	timing := 0.0
	if pairCount > 0 {
		timing = float64(simultaneousPairs) / float64(pairCount)
	}

	score := weightOverlap*overlapRatio + weightPairs*pairDensity + weightVolume*volumeRatio + weightTiming*timing
	return math.Max(0, math.Min(100, score))
}

// classify picks the dominant trading pattern. Majority same-direction pairs
// split on timing: at least half simultaneous reads as SIMULTANEOUS, at most
// a quarter as SEQUENTIAL, anything between as plain POSITIVE. Majority
// opposite-direction pairs read as hedging; no clear majority is MIXED.
func classify(totalPairs, simultaneousPairs, sameDirPairs, oppositeDirPairs int) models.CorrelationType {
	switch {
	case sameDirPairs > oppositeDirPairs:
		if 2*simultaneousPairs >= totalPairs {
			return models.CorrelationSimultaneous
		}
		if 4*simultaneousPairs <= totalPairs {
			return models.CorrelationSequential
		}
		return models.CorrelationPositive
	case oppositeDirPairs > sameDirPairs:
		return models.CorrelationNegative
	default:
		return models.CorrelationMixed
	}
}

func (a *Analyzer) severity(score float64) models.Severity {
	switch {
	case score >= a.thresholds.SeverityCritical:
		return models.SeverityCritical
	case score >= a.thresholds.SeverityHigh:
		return models.SeverityHigh
	case score >= a.thresholds.SeverityMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func (a *Analyzer) flagReasons(marketA, marketB string, wallets, pairs, simultaneous int, combinedVolume float64) []string {
	reasons := []string{
		fmt.Sprintf("%d overlapping wallets trading both markets", wallets),
	}
	if combinedVolume >= 10*a.thresholds.MinVolumeUSD {
		reasons = append(reasons, fmt.Sprintf("high combined volume $%.0f across both markets", combinedVolume))
	}
	if simultaneous > 0 {
		reasons = append(reasons, fmt.Sprintf("%d of %d trade pairs within %s of each other", simultaneous, pairs, a.thresholds.SimultaneousWindow))
	}
	if a.graph != nil {
		if rel := a.graph.GetRelation(marketA, marketB); rel != nil {
			reasons = append(reasons, fmt.Sprintf("markets have a declared %s relation (strength %.2f)", rel.RelationType, rel.Strength))
		}
	}
	return reasons
}
