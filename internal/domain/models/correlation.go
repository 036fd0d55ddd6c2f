package models

import "time"

// TradeSide is the direction of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// RelationType describes why two markets are considered related.
type RelationType string

const (
	RelationSameCategory   RelationType = "SAME_CATEGORY"
	RelationKeywordOverlap RelationType = "KEYWORD_OVERLAP"
	RelationOpposing       RelationType = "OPPOSING"
	RelationSameTopic      RelationType = "SAME_TOPIC"
	RelationComplementary  RelationType = "COMPLEMENTARY"
	RelationCustom         RelationType = "CUSTOM"
)

// CorrelationType classifies the dominant trading pattern behind a finding.
type CorrelationType string

const (
	CorrelationPositive     CorrelationType = "POSITIVE"
	CorrelationNegative     CorrelationType = "NEGATIVE"
	CorrelationSequential   CorrelationType = "SEQUENTIAL"
	CorrelationSimultaneous CorrelationType = "SIMULTANEOUS"
	CorrelationMixed        CorrelationType = "MIXED"
)

// Severity buckets a correlation score into coarse alert levels.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CorrelationStatus is the triage lifecycle of a finding.
type CorrelationStatus string

const (
	StatusDetected  CorrelationStatus = "DETECTED"
	StatusFlagged   CorrelationStatus = "FLAGGED"
	StatusDismissed CorrelationStatus = "DISMISSED"
)

// MarketRelation is an undirected edge between two market identifiers.
// SharedKeywords is nil unless the relation was auto-detected; an empty
// non-nil slice is a valid, distinct state.
type MarketRelation struct {
	MarketIDA      string       `json:"market_id_a"`
	MarketIDB      string       `json:"market_id_b"`
	RelationType   RelationType `json:"relation_type"`
	Strength       float64      `json:"strength"` // [0,1]
	SharedKeywords []string     `json:"shared_keywords,omitempty"`
	Category       string       `json:"category,omitempty"` // empty means uncategorized
	CreatedAt      time.Time    `json:"created_at"`
}

// CorrelationTrade is the minimal trade projection the analyzer consumes.
// Timestamp is epoch milliseconds. Wallet addresses are matched
// case-insensitively; callers may pass any casing.
type CorrelationTrade struct {
	TradeID       string    `json:"trade_id"`
	MarketID      string    `json:"market_id"`
	WalletAddress string    `json:"wallet_address"`
	Side          TradeSide `json:"side"`
	SizeUSD       float64   `json:"size_usd"`
	Timestamp     int64     `json:"timestamp"`
}

// Correlation is a scored, classified claim that two markets show
// coordinated trading via overlapping wallets.
type Correlation struct {
	CorrelationID    string            `json:"correlation_id"`
	MarketIDA        string            `json:"market_id_a"`
	MarketIDB        string            `json:"market_id_b"`
	WalletAddresses  []string          `json:"wallet_addresses"`
	WalletCount      int               `json:"wallet_count"`
	TradePairCount   int               `json:"trade_pair_count"`
	VolumeMarketA    float64           `json:"volume_market_a"`
	VolumeMarketB    float64           `json:"volume_market_b"`
	CorrelationScore float64           `json:"correlation_score"` // [0,100]
	CorrelationType  CorrelationType   `json:"correlation_type"`
	Severity         Severity          `json:"severity"`
	FlagReasons      []string          `json:"flag_reasons"`
	Status           CorrelationStatus `json:"status"`
	DetectedAt       time.Time         `json:"detected_at"`
}

// AnalysisResult is the outcome of one pairwise analysis.
type AnalysisResult struct {
	HasCorrelation     bool         `json:"has_correlation"`
	OverlappingWallets []string     `json:"overlapping_wallets"`
	Correlation        *Correlation `json:"correlation,omitempty"`
}

// BatchResult aggregates a multi-market fan-out analysis.
type BatchResult struct {
	TotalPairsAnalyzed int            `json:"total_pairs_analyzed"`
	ProcessingTime     time.Duration  `json:"processing_time"`
	Correlations       []*Correlation `json:"correlations"`
}

// Market is a catalog tuple used for relation auto-detection.
type Market struct {
	MarketID string `json:"market_id"`
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
}
