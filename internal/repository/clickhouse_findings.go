package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PolyCorr/internal/domain/models"
	ch "PolyCorr/pkg/clickhouse"
	xlogger "PolyCorr/pkg/logger"
)

const findingsSchema = `
CREATE TABLE IF NOT EXISTS correlation_findings (
    correlation_id    String,
    market_id_a       LowCardinality(String),
    market_id_b       LowCardinality(String),
    wallet_addresses  Array(String),
    wallet_count      UInt32,
    trade_pair_count  UInt32,
    volume_market_a   Float64,
    volume_market_b   Float64,
    correlation_score Float64,
    correlation_type  LowCardinality(String),
    severity          LowCardinality(String),
    flag_reasons      Array(String),
    status            LowCardinality(String),
    detected_at       DateTime64(3)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(detected_at)
ORDER BY (detected_at, market_id_a, market_id_b)
TTL toDateTime(detected_at) + INTERVAL 180 DAY
`

const findingsInsert = `
INSERT INTO correlation_findings (
    correlation_id, market_id_a, market_id_b, wallet_addresses,
    wallet_count, trade_pair_count, volume_market_a, volume_market_b,
    correlation_score, correlation_type, severity, flag_reasons,
    status, detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ClickHouseFindings persists accepted findings and serves historical
// trade windows for offline sweeps.
type ClickHouseFindings struct {
	client *ch.Client
	logger *xlogger.Logger
}

func NewClickHouseFindings(client *ch.Client, l *xlogger.Logger) *ClickHouseFindings {
	return &ClickHouseFindings{client: client, logger: l}
}

func (r *ClickHouseFindings) Init(ctx context.Context) error {
	return r.client.InitSchema(ctx, []string{findingsSchema, tradesSchema})
}

func (r *ClickHouseFindings) Store(ctx context.Context, c *models.Correlation) error {
	return r.StoreBatch(ctx, []*models.Correlation{c})
}

func (r *ClickHouseFindings) StoreBatch(ctx context.Context, cs []*models.Correlation) error {
	if len(cs) == 0 {
		return nil
	}
	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin findings batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, findingsInsert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare findings insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cs {
		if c == nil {
			continue
		}
		reasons := make([]string, len(c.FlagReasons))
		copy(reasons, c.FlagReasons)
		if _, err := stmt.ExecContext(ctx,
			c.CorrelationID, c.MarketIDA, c.MarketIDB, c.WalletAddresses,
			uint32(c.WalletCount), uint32(c.TradePairCount),
			c.VolumeMarketA, c.VolumeMarketB,
			c.CorrelationScore, string(c.CorrelationType), string(c.Severity),
			reasons, string(c.Status), c.DetectedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert finding %s: %w", c.CorrelationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit findings batch: %w", err)
	}
	r.logger.Debug("findings stored", xlogger.Int("count", len(cs)))
	return nil
}

func (r *ClickHouseFindings) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}

func (r *ClickHouseFindings) Close() error {
	return r.client.Close()
}

const tradesSchema = `
CREATE TABLE IF NOT EXISTS market_trades (
    trade_id       String,
    market_id      LowCardinality(String),
    wallet_address String,
    side           LowCardinality(String),
    size_usd       Float64,
    ts             DateTime64(3)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ts)
ORDER BY (market_id, ts)
TTL toDateTime(ts) + INTERVAL 90 DAY
`

// MarketTrades returns trades for one market since the given time,
// oldest first, capped at limit.
func (r *ClickHouseFindings) MarketTrades(ctx context.Context, marketID string, since time.Time, limit int) ([]models.CorrelationTrade, error) {
	if limit <= 0 {
		limit = 10000
	}
	query := `
		SELECT trade_id, market_id, wallet_address, side, size_usd, toUnixTimestamp64Milli(ts)
		FROM market_trades
		WHERE market_id = ? AND ts >= ?
		ORDER BY ts ASC
		LIMIT ?`

	rows, err := r.client.DB().QueryContext(ctx, query, marketID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query market trades: %w", err)
	}
	defer rows.Close()

	var out []models.CorrelationTrade
	for rows.Next() {
		var t models.CorrelationTrade
		var side string
		if err := rows.Scan(&t.TradeID, &t.MarketID, &t.WalletAddress, &side, &t.SizeUSD, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Side = models.TradeSide(strings.ToUpper(side))
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return out, nil
}

// StoreTrades appends raw trades for later window queries. Failures are
// logged but not fatal to the ingestion path.
func (r *ClickHouseFindings) StoreTrades(ctx context.Context, ts []models.CorrelationTrade) error {
	if len(ts) == 0 {
		return nil
	}
	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trades batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO market_trades (trade_id, market_id, wallet_address, side, size_usd, ts) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare trades insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ts {
		if _, err := stmt.ExecContext(ctx,
			t.TradeID, t.MarketID, t.WalletAddress, string(t.Side), t.SizeUSD,
			time.UnixMilli(t.Timestamp).UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
	}
	return tx.Commit()
}
