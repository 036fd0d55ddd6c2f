package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"PolyCorr/internal/domain/models"
)

func testThresholds() Thresholds {
	return Thresholds{
		MinOverlappingWallets: 2,
		MinTradePairs:         2,
		MinVolumeUSD:          1000,
		MinCorrelationScore:   10,
		SeverityMedium:        40,
		SeverityHigh:          60,
		SeverityCritical:      80,
		SimultaneousWindow:    5 * time.Minute,
		AnalysisWindow:        time.Hour,
		AlertCooldown:         30 * time.Minute,
		MaxRecentCorrelations: 100,
	}
}

func mkTrade(seq int, marketID, wallet string, side models.TradeSide, sizeUSD float64, ts int64) models.CorrelationTrade {
	return models.CorrelationTrade{
		TradeID:       fmt.Sprintf("%s-%d", marketID, seq),
		MarketID:      marketID,
		WalletAddress: wallet,
		Side:          side,
		SizeUSD:       sizeUSD,
		Timestamp:     ts,
	}
}

// coordinatedTrades builds the spec scenario: each wallet trades n times with
// sizeUSD in the market, spread over 30 seconds ending at base.
func coordinatedTrades(marketID string, wallets []string, n int, sizeUSD float64, base int64) []models.CorrelationTrade {
	var out []models.CorrelationTrade
	seq := 0
	for _, w := range wallets {
		for i := 0; i < n; i++ {
			out = append(out, mkTrade(seq, marketID, w, models.SideBuy, sizeUSD, base-int64(i*10_000)))
			seq++
		}
	}
	return out
}

func TestAnalyzeCoordinatedWallets(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}
	tradesA := coordinatedTrades("mkt-a", wallets, 3, 10_000, now)
	tradesB := coordinatedTrades("mkt-b", wallets, 3, 10_000, now)

	res := a.Analyze(tradesA, tradesB)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation, got none")
	}
	c := res.Correlation
	if c.WalletCount != 2 {
		t.Errorf("expected 2 wallets, got %d", c.WalletCount)
	}
	if c.CorrelationScore < 0 || c.CorrelationScore > 100 {
		t.Errorf("score out of range: %v", c.CorrelationScore)
	}
	switch c.CorrelationType {
	case models.CorrelationSequential, models.CorrelationSimultaneous, models.CorrelationPositive, models.CorrelationMixed:
	default:
		t.Errorf("unexpected type %s for same-direction trading", c.CorrelationType)
	}
	if len(c.FlagReasons) < 1 {
		t.Fatalf("expected at least one flag reason")
	}
	if !strings.Contains(c.FlagReasons[0], "2 overlapping wallets") {
		t.Errorf("first reason must be the wallet-count reason, got %q", c.FlagReasons[0])
	}
	if c.Status != models.StatusDetected {
		t.Errorf("new finding must start DETECTED, got %s", c.Status)
	}
	if c.VolumeMarketA != 60_000 || c.VolumeMarketB != 60_000 {
		t.Errorf("unexpected volumes %v / %v", c.VolumeMarketA, c.VolumeMarketB)
	}
}

func TestAnalyzeNoWalletOverlap(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	tradesA := coordinatedTrades("mkt-a", []string{"0xalice", "0xbob"}, 3, 10_000, now)
	tradesB := coordinatedTrades("mkt-b", []string{"0xcarol", "0xdave"}, 3, 10_000, now)

	res := a.Analyze(tradesA, tradesB)
	if res.HasCorrelation {
		t.Fatalf("expected no correlation for disjoint wallets")
	}
	if len(res.OverlappingWallets) != 0 {
		t.Errorf("expected empty overlap, got %v", res.OverlappingWallets)
	}
}

func TestAnalyzeBelowWalletThreshold(t *testing.T) {
	th := testThresholds()
	th.MinOverlappingWallets = 3
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	res := a.Analyze(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if res.HasCorrelation {
		t.Fatalf("expected gate on 2 < 3 overlapping wallets")
	}
	if len(res.OverlappingWallets) != 2 {
		t.Errorf("overlap should still be reported, got %v", res.OverlappingWallets)
	}
}

func TestAnalyzeCaseInsensitiveWallets(t *testing.T) {
	th := testThresholds()
	th.MinOverlappingWallets = 1
	th.MinTradePairs = 1
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()

	tradesA := []models.CorrelationTrade{mkTrade(0, "mkt-a", "0xABCD1234", models.SideBuy, 5000, now)}
	tradesB := []models.CorrelationTrade{mkTrade(0, "mkt-b", "0xabcd1234", models.SideBuy, 5000, now)}

	res := a.Analyze(tradesA, tradesB)
	if len(res.OverlappingWallets) != 1 {
		t.Fatalf("expected 1 overlapping wallet across casings, got %d", len(res.OverlappingWallets))
	}
	if res.OverlappingWallets[0] != "0xabcd1234" {
		t.Errorf("overlap not canonicalized: %v", res.OverlappingWallets)
	}
	if !res.HasCorrelation {
		t.Errorf("expected correlation at relaxed thresholds")
	}
}

func TestAnalyzeWindowDiscardsStaleTrades(t *testing.T) {
	th := testThresholds()
	th.AnalysisWindow = time.Minute
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	stale := coordinatedTrades("mkt-a", wallets, 3, 10_000, now-time.Hour.Milliseconds())
	fresh := coordinatedTrades("mkt-b", wallets, 3, 10_000, now)

	if res := a.Analyze(stale, fresh); res.HasCorrelation {
		t.Fatalf("trades outside the analysis window must not correlate")
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	trades := coordinatedTrades("mkt-a", []string{"0xw1", "0xw2"}, 3, 10_000, now)

	if res := a.Analyze(nil, nil); res.HasCorrelation {
		t.Errorf("nil inputs must not correlate")
	}
	if res := a.Analyze(trades, nil); res.HasCorrelation {
		t.Errorf("one-sided input must not correlate")
	}
	if res := a.Analyze(nil, trades); res.HasCorrelation {
		t.Errorf("one-sided input must not correlate")
	}
}

func TestAnalyzeVolumeGate(t *testing.T) {
	th := testThresholds()
	th.MinVolumeUSD = 1_000_000
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	res := a.Analyze(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if res.HasCorrelation {
		t.Fatalf("combined volume $120k must not pass a $1M gate")
	}
}

func TestAnalyzeScoreMonotonicInOverlap(t *testing.T) {
	th := testThresholds()
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()

	// Union of wallets is fixed at four; only the overlap grows.
	all := []string{"0xw1", "0xw2", "0xw3", "0xw4"}
	score := func(overlapping int) float64 {
		tradesA := coordinatedTrades("mkt-a", all, 3, 10_000, now)
		tradesB := coordinatedTrades("mkt-b", all[:overlapping], 3, 10_000, now)
		res := a.Analyze(tradesA, tradesB)
		if !res.HasCorrelation {
			t.Fatalf("expected correlation with %d overlapping wallets", overlapping)
		}
		return res.Correlation.CorrelationScore
	}

	s2, s3, s4 := score(2), score(3), score(4)
	if s3 < s2 || s4 < s3 {
		t.Errorf("score must be non-decreasing in overlap: %v, %v, %v", s2, s3, s4)
	}
}

func TestAnalyzeScoreMonotonicInPairs(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	score := func(perWallet int) float64 {
		res := a.Analyze(
			coordinatedTrades("mkt-a", wallets, perWallet, 10_000, now),
			coordinatedTrades("mkt-b", wallets, 1, 10_000, now),
		)
		if !res.HasCorrelation {
			t.Fatalf("expected correlation at %d trades per wallet", perWallet)
		}
		return res.Correlation.CorrelationScore
	}

	s1, s2, s3 := score(1), score(2), score(3)
	if s2 < s1 || s3 < s2 {
		t.Errorf("score must be non-decreasing in pair count: %v, %v, %v", s1, s2, s3)
	}
}

func TestAnalyzeScoreMonotonicInVolume(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	// Same wallets and pair structure; only the per-trade size grows.
	score := func(sizeUSD float64) float64 {
		res := a.Analyze(
			coordinatedTrades("mkt-a", wallets, 3, sizeUSD, now),
			coordinatedTrades("mkt-b", wallets, 3, sizeUSD, now),
		)
		if !res.HasCorrelation {
			t.Fatalf("expected correlation at $%.0f per trade", sizeUSD)
		}
		return res.Correlation.CorrelationScore
	}

	s1, s2, s3 := score(1_000), score(10_000), score(100_000)
	if s2 < s1 || s3 < s2 {
		t.Errorf("score must be non-decreasing in volume: %v, %v, %v", s1, s2, s3)
	}
}

func TestSeverityCutPoints(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil) // medium 40, high 60, critical 80
	cases := []struct {
		score float64
		want  models.Severity
	}{
		{0, models.SeverityLow},
		{39.9, models.SeverityLow},
		{40, models.SeverityMedium},
		{59.9, models.SeverityMedium},
		{60, models.SeverityHigh},
		{79.9, models.SeverityHigh},
		{80, models.SeverityCritical},
		{100, models.SeverityCritical},
	}
	for _, tc := range cases {
		if got := a.severity(tc.score); got != tc.want {
			t.Errorf("severity(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestAnalyzeNegativeCorrelation(t *testing.T) {
	a := NewAnalyzer(testThresholds(), nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	buys := coordinatedTrades("mkt-a", wallets, 3, 10_000, now)
	sells := coordinatedTrades("mkt-b", wallets, 3, 10_000, now)
	for i := range sells {
		sells[i].Side = models.SideSell
	}

	res := a.Analyze(buys, sells)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	if res.Correlation.CorrelationType != models.CorrelationNegative {
		t.Errorf("opposite-direction pairs should classify NEGATIVE, got %s", res.Correlation.CorrelationType)
	}
}

func TestAnalyzeSequentialClassification(t *testing.T) {
	th := testThresholds()
	th.SimultaneousWindow = time.Second
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	tradesA := coordinatedTrades("mkt-a", wallets, 2, 10_000, now)
	// Market B trades lag ten minutes behind: no pair is simultaneous.
	tradesB := coordinatedTrades("mkt-b", wallets, 2, 10_000, now-10*time.Minute.Milliseconds())

	res := a.Analyze(tradesA, tradesB)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	if res.Correlation.CorrelationType != models.CorrelationSequential {
		t.Errorf("lagged same-direction pairs should classify SEQUENTIAL, got %s", res.Correlation.CorrelationType)
	}
}

func TestAnalyzePositiveClassification(t *testing.T) {
	th := testThresholds()
	th.MinOverlappingWallets = 1
	th.MinTradePairs = 1
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()

	// One of three same-direction pairs is simultaneous: between the quarter
	// and half bounds, so neither timing pattern dominates.
	tradesA := []models.CorrelationTrade{mkTrade(0, "mkt-a", "0xw1", models.SideBuy, 10_000, now)}
	tradesB := []models.CorrelationTrade{
		mkTrade(0, "mkt-b", "0xw1", models.SideBuy, 10_000, now),
		mkTrade(1, "mkt-b", "0xw1", models.SideBuy, 10_000, now-10*time.Minute.Milliseconds()),
		mkTrade(2, "mkt-b", "0xw1", models.SideBuy, 10_000, now-11*time.Minute.Milliseconds()),
	}

	res := a.Analyze(tradesA, tradesB)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	if res.Correlation.CorrelationType != models.CorrelationPositive {
		t.Errorf("partly simultaneous same-direction pairs should classify POSITIVE, got %s", res.Correlation.CorrelationType)
	}
}

func TestAnalyzeMinScoreGate(t *testing.T) {
	th := testThresholds()
	th.MinCorrelationScore = 99.5
	a := NewAnalyzer(th, nil)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	res := a.Analyze(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if res.HasCorrelation {
		t.Fatalf("score floor of 99.5 should reject the finding")
	}
	if len(res.OverlappingWallets) != 2 {
		t.Errorf("overlap evidence should still be returned")
	}
}

func TestAnalyzeRelationFlagReason(t *testing.T) {
	g := NewRelationGraph(nil)
	g.AddRelation(RelationSpec{MarketIDA: "mkt-a", MarketIDB: "mkt-b", RelationType: models.RelationSameTopic, Strength: 0.7})
	a := NewAnalyzer(testThresholds(), g)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	res := a.Analyze(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	found := false
	for _, r := range res.Correlation.FlagReasons {
		if strings.Contains(r, "SAME_TOPIC") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected declared-relation flag reason, got %v", res.Correlation.FlagReasons)
	}
}
