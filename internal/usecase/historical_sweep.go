package usecase

import (
	"context"
	"fmt"
	"time"

	"PolyCorr/internal/domain/models"
	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/engine"
	xutil "PolyCorr/pkg/util"
)

// HistoricalSweep replays stored trade windows through the engine so a
// pair can be re-analyzed after thresholds or relations change.
type HistoricalSweep struct {
	eng    *engine.Engine
	source domrepo.TradeSource

	maxWindow time.Duration
	limit     int
}

func NewHistoricalSweep(eng *engine.Engine, source domrepo.TradeSource, maxWindow time.Duration, limit int) *HistoricalSweep {
	if maxWindow <= 0 {
		maxWindow = 7 * 24 * time.Hour
	}
	if limit <= 0 {
		limit = 10000
	}
	return &HistoricalSweep{eng: eng, source: source, maxWindow: maxWindow, limit: limit}
}

// AnalyzePair loads both markets' trades since the given time and runs a
// correlation analysis. Cooldowns are bypassed: an operator asking for a
// replay wants the answer even if the pair alerted recently.
func (s *HistoricalSweep) AnalyzePair(ctx context.Context, marketA, marketB string, since time.Time) (models.AnalysisResult, error) {
	if marketA == "" || marketB == "" || marketA == marketB {
		return models.AnalysisResult{}, fmt.Errorf("two distinct market ids are required")
	}
	since = xutil.ClampSince(since, time.Now(), s.maxWindow)

	tradesA, err := s.source.MarketTrades(ctx, marketA, since, s.limit)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("load trades for %s: %w", marketA, err)
	}
	tradesB, err := s.source.MarketTrades(ctx, marketB, since, s.limit)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("load trades for %s: %w", marketB, err)
	}

	res := s.eng.AnalyzeCorrelation(tradesA, tradesB, engine.AnalyzeOptions{BypassCooldown: true})
	return res, nil
}
