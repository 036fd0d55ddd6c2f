package usecase

import (
	"context"
	"testing"
	"time"

	"PolyCorr/internal/domain/models"
	"PolyCorr/internal/engine"
)

func batcherTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	th := engine.DefaultThresholds()
	th.MinVolumeUSD = 100
	th.MinCorrelationScore = 10
	e, err := engine.NewEngine(th, false, nil, nil)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

func batchTrade(marketID, wallet string, seq int, ts int64) *models.CorrelationTrade {
	return &models.CorrelationTrade{
		TradeID:       marketID + "-" + wallet + "-" + string(rune('a'+seq)),
		MarketID:      marketID,
		WalletAddress: wallet,
		Side:          models.SideBuy,
		SizeUSD:       5000,
		Timestamp:     ts,
	}
}

func TestBatcherFlushRunsAnalysis(t *testing.T) {
	eng := batcherTestEngine(t)
	b := NewTradeBatcher(eng, nil, nil, nil, time.Hour, 1000)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		for _, w := range []string{"0xw1", "0xw2", "0xw3"} {
			if err := b.Process(ctx, batchTrade("mkt-a", w, i, now+int64(i)*1000)); err != nil {
				t.Fatalf("process: %v", err)
			}
			if err := b.Process(ctx, batchTrade("mkt-b", w, i, now+int64(i)*1000+500)); err != nil {
				t.Fatalf("process: %v", err)
			}
		}
	}

	res := b.Flush(ctx)
	if res.TotalPairsAnalyzed != 1 {
		t.Fatalf("expected 1 pair analyzed, got %d", res.TotalPairsAnalyzed)
	}
	if len(res.Correlations) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(res.Correlations))
	}
	if got := res.Correlations[0].WalletCount; got != 3 {
		t.Errorf("wallet count = %d, want 3", got)
	}

	// Buffer is drained by the flush.
	res = b.Flush(ctx)
	if res.TotalPairsAnalyzed != 0 {
		t.Errorf("second flush analyzed %d pairs, want 0", res.TotalPairsAnalyzed)
	}
}

func TestBatcherSizeTriggeredFlush(t *testing.T) {
	eng := batcherTestEngine(t)
	b := NewTradeBatcher(eng, nil, nil, nil, time.Hour, 4)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	for i, w := range []string{"0xw1", "0xw2"} {
		_ = b.Process(ctx, batchTrade("mkt-a", w, i, now))
		_ = b.Process(ctx, batchTrade("mkt-b", w, i, now))
	}

	// Reaching flushSize flushed inline; the buffer must be empty again.
	b.mu.Lock()
	pending := b.pending
	b.mu.Unlock()
	if pending != 0 {
		t.Fatalf("pending = %d after size-triggered flush, want 0", pending)
	}
	if eng.Stats().TotalCorrelationsDetected == 0 {
		t.Errorf("expected at least one finding from inline flush")
	}
}

func TestBatcherSingleMarketFlushIsNoop(t *testing.T) {
	eng := batcherTestEngine(t)
	b := NewTradeBatcher(eng, nil, nil, nil, time.Hour, 1000)
	ctx := context.Background()

	_ = b.Process(ctx, batchTrade("mkt-a", "0xw1", 0, time.Now().UnixMilli()))
	res := b.Flush(ctx)
	if res.TotalPairsAnalyzed != 0 || len(res.Correlations) != 0 {
		t.Fatalf("single market flush should analyze nothing, got %+v", res)
	}
}
