package usecase

import (
	"context"
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/engine"
	xlogger "PolyCorr/pkg/logger"
)

// TradeBatcher accumulates trades per market and periodically hands the
// batch to the correlation engine. It is the only caller of the engine on
// the ingestion path, so the engine sees complete per-market windows rather
// than single trades.
// TradeStore archives flushed batches for later window queries.
type TradeStore interface {
	StoreTrades(ctx context.Context, ts []models.CorrelationTrade) error
}

type TradeBatcher struct {
	eng           *engine.Engine
	metrics       domrepo.Metrics
	logger        *xlogger.Logger
	store         TradeStore
	flushInterval time.Duration
	flushSize     int

	mu      sync.Mutex
	buf     map[string][]models.CorrelationTrade
	pending int

	stopCh  chan struct{}
	started bool
	stateMu sync.Mutex
}

// NewTradeBatcher creates a batcher flushing every flushInterval or once
// pending trades reach flushSize, whichever comes first.
func NewTradeBatcher(eng *engine.Engine, metrics domrepo.Metrics, l *xlogger.Logger, store TradeStore, flushInterval time.Duration, flushSize int) *TradeBatcher {
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}
	if flushSize <= 0 {
		flushSize = 500
	}
	return &TradeBatcher{
		eng:           eng,
		metrics:       metrics,
		logger:        l,
		store:         store,
		flushInterval: flushInterval,
		flushSize:     flushSize,
		buf:           make(map[string][]models.CorrelationTrade),
		stopCh:        make(chan struct{}),
	}
}

// Process buffers one trade. Implements the pipeline Proc interface.
func (b *TradeBatcher) Process(ctx context.Context, t *models.CorrelationTrade) error {
	if t == nil {
		return nil
	}
	b.mu.Lock()
	b.buf[t.MarketID] = append(b.buf[t.MarketID], *t)
	b.pending++
	full := b.pending >= b.flushSize
	b.mu.Unlock()

	if full {
		b.Flush(ctx)
	}
	return nil
}

// Start launches the periodic flush loop.
func (b *TradeBatcher) Start(ctx context.Context) {
	b.stateMu.Lock()
	if b.started {
		b.stateMu.Unlock()
		return
	}
	b.started = true
	b.stateMu.Unlock()

	go func() {
		ticker := time.NewTicker(b.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				b.Flush(ctx)
			}
		}
	}()
}

// Stop halts the flush loop. Buffered trades are flushed one final time.
func (b *TradeBatcher) Stop() {
	b.stateMu.Lock()
	if !b.started {
		b.stateMu.Unlock()
		return
	}
	b.started = false
	b.stateMu.Unlock()
	close(b.stopCh)
	b.Flush(context.Background())
}

// Flush runs the batch through the engine and returns its result.
func (b *TradeBatcher) Flush(ctx context.Context) models.BatchResult {
	b.mu.Lock()
	batch := b.buf
	b.buf = make(map[string][]models.CorrelationTrade)
	b.pending = 0
	b.mu.Unlock()

	if b.store != nil {
		b.archive(ctx, batch)
	}

	if len(batch) < 2 {
		// Nothing to pair against.
		return models.BatchResult{Correlations: []*models.Correlation{}}
	}

	res := b.eng.AnalyzeMultiplePairs(batch)
	if b.metrics != nil {
		b.metrics.RecordLatency("batch_flush", res.ProcessingTime.Seconds())
	}
	if b.logger != nil && len(res.Correlations) > 0 {
		b.logger.Info("trade batch analyzed",
			xlogger.Int("markets", len(batch)),
			xlogger.Int("pairs", res.TotalPairsAnalyzed),
			xlogger.Int("findings", len(res.Correlations)),
			xlogger.Duration("took", res.ProcessingTime),
		)
	}
	return res
}

// archive persists the flushed window. Failures keep the analysis path
// alive; the batch is already in memory for scoring.
func (b *TradeBatcher) archive(ctx context.Context, batch map[string][]models.CorrelationTrade) {
	n := 0
	for _, ts := range batch {
		n += len(ts)
	}
	if n == 0 {
		return
	}
	all := make([]models.CorrelationTrade, 0, n)
	for _, ts := range batch {
		all = append(all, ts...)
	}
	if err := b.store.StoreTrades(ctx, all); err != nil {
		if b.metrics != nil {
			b.metrics.RecordError("trade_archive")
		}
		if b.logger != nil {
			b.logger.Warn("trade archive failed", xlogger.Error(err))
		}
	}
}
