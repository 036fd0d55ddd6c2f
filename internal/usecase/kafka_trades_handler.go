package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"PolyCorr/internal/domain/models"
	"PolyCorr/internal/middleware"
)

// kafkaTrade is the wire shape of a trade on the trades topic.
type kafkaTrade struct {
	ID            string  `json:"id"`
	MarketID      string  `json:"market_id"`
	WalletAddress string  `json:"wallet_address"`
	Side          string  `json:"side"`
	SizeUSD       float64 `json:"size_usd"`
	Timestamp     int64   `json:"timestamp"`
}

// TradesHandler consumes trades from Kafka and forwards them through the
// realtime pipeline. Alternative ingestion path to the websocket collector.
type TradesHandler struct {
	topic    string
	pipeline *middleware.RealtimePipeline
}

func NewTradesHandler(topic string, pipeline *middleware.RealtimePipeline) *TradesHandler {
	return &TradesHandler{topic: topic, pipeline: pipeline}
}

func (h *TradesHandler) Topic() string { return h.topic }

func (h *TradesHandler) Handle(ctx context.Context, payload []byte) error {
	var kt kafkaTrade
	if err := json.Unmarshal(payload, &kt); err != nil {
		return fmt.Errorf("decode trade: %w", err)
	}
	side := models.TradeSide(strings.ToUpper(kt.Side))
	if side != models.SideBuy && side != models.SideSell {
		return fmt.Errorf("unknown trade side %q", kt.Side)
	}
	t := &models.CorrelationTrade{
		TradeID:       kt.ID,
		MarketID:      kt.MarketID,
		WalletAddress: kt.WalletAddress,
		Side:          side,
		SizeUSD:       kt.SizeUSD,
		Timestamp:     kt.Timestamp,
	}
	return h.pipeline.Process(ctx, t)
}
