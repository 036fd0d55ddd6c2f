package engine

import (
	"fmt"
	"time"
)

// Thresholds is the tunable gating and scoring configuration of the engine.
// All knobs are construction-time; an Engine never reloads them.
type Thresholds struct {
	// Gates applied in order during analysis.
	MinOverlappingWallets int
	MinTradePairs         int
	// MinVolumeUSD gates on the combined (market A + market B) volume of the
	// overlapping wallets. Combined gating is deliberate: either-side gating
	// under-detects asymmetric hedges.
	MinVolumeUSD float64
	// MinCorrelationScore is a floor on the composite score; findings below
	// it are rejected even when every earlier gate passed.
	MinCorrelationScore float64

	// Severity cut points over the [0,100] score, ascending.
	SeverityMedium   float64
	SeverityHigh     float64
	SeverityCritical float64

	// A trade pair is "simultaneous" when the timestamp delta is within this window.
	SimultaneousWindow time.Duration
	// Trades older than AnalysisWindow relative to analysis time are discarded.
	AnalysisWindow time.Duration

	// AlertCooldown suppresses repeat findings for the same market pair.
	AlertCooldown time.Duration
	// MaxRecentCorrelations bounds the ledger history (FIFO eviction).
	MaxRecentCorrelations int
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinOverlappingWallets: 2,
		MinTradePairs:         2,
		MinVolumeUSD:          1000,
		MinCorrelationScore:   30,
		SeverityMedium:        40,
		SeverityHigh:          60,
		SeverityCritical:      80,
		SimultaneousWindow:    5 * time.Minute,
		AnalysisWindow:        24 * time.Hour,
		AlertCooldown:         30 * time.Minute,
		MaxRecentCorrelations: 1000,
	}
}

// Validate rejects configurations that would make classification
// non-monotonic or gating meaningless.
func (t Thresholds) Validate() error {
	if t.MinOverlappingWallets < 1 {
		return fmt.Errorf("min_overlapping_wallets must be >= 1, got %d", t.MinOverlappingWallets)
	}
	if t.MinTradePairs < 1 {
		return fmt.Errorf("min_trade_pairs must be >= 1, got %d", t.MinTradePairs)
	}
	if t.MinVolumeUSD < 0 {
		return fmt.Errorf("min_volume_usd must be >= 0, got %v", t.MinVolumeUSD)
	}
	if t.MinCorrelationScore < 0 || t.MinCorrelationScore > 100 {
		return fmt.Errorf("min_correlation_score must be in [0,100], got %v", t.MinCorrelationScore)
	}
	if t.SeverityMedium <= 0 || t.SeverityCritical > 100 {
		return fmt.Errorf("severity thresholds must be in (0,100], got medium=%v critical=%v", t.SeverityMedium, t.SeverityCritical)
	}
	if t.SeverityHigh <= t.SeverityMedium {
		return fmt.Errorf("severity ladder must ascend: high (%v) <= medium (%v)", t.SeverityHigh, t.SeverityMedium)
	}
	if t.SeverityCritical <= t.SeverityHigh {
		return fmt.Errorf("severity ladder must ascend: critical (%v) <= high (%v)", t.SeverityCritical, t.SeverityHigh)
	}
	if t.SimultaneousWindow <= 0 {
		return fmt.Errorf("simultaneous_window must be positive, got %v", t.SimultaneousWindow)
	}
	if t.AnalysisWindow <= 0 {
		return fmt.Errorf("analysis_window must be positive, got %v", t.AnalysisWindow)
	}
	if t.AlertCooldown < 0 {
		return fmt.Errorf("alert_cooldown must be >= 0, got %v", t.AlertCooldown)
	}
	if t.MaxRecentCorrelations < 1 {
		return fmt.Errorf("max_recent_correlations must be >= 1, got %d", t.MaxRecentCorrelations)
	}
	return nil
}
