package models

// Requests for the correlation HTTP endpoints. Defined in domain for consistency and reuse.

type RecentCorrelationsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type MarketCorrelationsRequest struct {
	MarketID string `param:"id" json:"market_id" validate:"required"`
}

type WalletCorrelationsRequest struct {
	Wallet string `param:"wallet" json:"wallet" validate:"required"`
}

type SeverityCorrelationsRequest struct {
	Severity string `query:"severity" json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

type TypeCorrelationsRequest struct {
	Type string `query:"type" json:"type" validate:"required,oneof=POSITIVE NEGATIVE SEQUENTIAL SIMULTANEOUS MIXED"`
}

type AddRelationRequest struct {
	MarketIDA    string  `json:"market_id_a" validate:"required"`
	MarketIDB    string  `json:"market_id_b" validate:"required,nefield=MarketIDA"`
	RelationType string  `json:"relation_type" default:"CUSTOM" validate:"oneof=SAME_CATEGORY KEYWORD_OVERLAP OPPOSING SAME_TOPIC COMPLEMENTARY CUSTOM"`
	Strength     float64 `json:"strength" default:"0.5" validate:"gte=0,lte=1"`
	Category     string  `json:"category"`
}

type RemoveRelationRequest struct {
	MarketIDA string `query:"market_id_a" json:"market_id_a" validate:"required"`
	MarketIDB string `query:"market_id_b" json:"market_id_b" validate:"required"`
}

type MarketRelationsRequest struct {
	MarketID string `param:"id" json:"market_id" validate:"required"`
}

type AutoDetectRequest struct {
	MinSharedKeywords int `json:"min_shared_keywords" default:"2" validate:"gte=1,lte=10"`
}

type UpdateStatusRequest struct {
	ID     string `param:"id" json:"id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=DETECTED FLAGGED DISMISSED"`
}
