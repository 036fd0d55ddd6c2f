package repository

import (
	"context"
	"time"

	"PolyCorr/internal/domain/models"
)

// MarketStream is a live source of trades across the watched markets.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CorrelationTrade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// AlertPublisher delivers accepted correlation findings downstream.
type AlertPublisher interface {
	Publish(ctx context.Context, c *models.Correlation) error
	Close() error
}

// FindingSink persists accepted findings for offline review. The in-memory
// ledger stays canonical; the sink is write-behind.
type FindingSink interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, c *models.Correlation) error
	StoreBatch(ctx context.Context, cs []*models.Correlation) error
	Health(ctx context.Context) error
	Close() error
}

// TradeSource reads per-market trade windows for sweep analysis.
type TradeSource interface {
	MarketTrades(ctx context.Context, marketID string, since time.Time, limit int) ([]models.CorrelationTrade, error)
}

// MarketCatalog supplies market metadata for relation auto-detection.
type MarketCatalog interface {
	ActiveMarkets(ctx context.Context) ([]models.Market, error)
}

// Metrics is the engine-facing observability surface.
type Metrics interface {
	RecordCorrelation(severity string)
	RecordSuppressed()
	RecordTradeIngested(marketID string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetRelationsTracked(n int)
}
