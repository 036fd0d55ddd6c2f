package engine

import (
	"testing"
	"time"

	"PolyCorr/internal/domain/models"
)

func newTestEngine(t *testing.T, th Thresholds) *Engine {
	t.Helper()
	e, err := NewEngine(th, true, nil, nil)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

func TestEngineRejectsInvertedSeverityLadder(t *testing.T) {
	th := testThresholds()
	th.SeverityCritical = th.SeverityHigh // critical <= high
	if _, err := NewEngine(th, true, nil, nil); err == nil {
		t.Fatalf("expected inverted severity ladder to be rejected")
	}

	th = testThresholds()
	th.SeverityHigh = th.SeverityMedium - 1
	if _, err := NewEngine(th, true, nil, nil); err == nil {
		t.Fatalf("expected high <= medium to be rejected")
	}
}

func TestEngineEndToEnd(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	var detected, critical []*models.Correlation
	e.Hub().Subscribe(EventCorrelationDetected, func(ev Event) { detected = append(detected, ev.Correlation) })
	e.Hub().Subscribe(EventCriticalCorrelation, func(ev Event) { critical = append(critical, ev.Correlation) })

	res := e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	if got := e.Ledger().Len(); got != 1 {
		t.Fatalf("expected finding recorded, got %d", got)
	}
	if len(detected) != 1 {
		t.Fatalf("expected one correlationDetected event, got %d", len(detected))
	}
	if res.Correlation.Severity == models.SeverityCritical && len(critical) != 1 {
		t.Errorf("critical severity must additionally fire criticalCorrelation")
	}

	stats := e.Stats()
	if stats.TotalCorrelationsDetected != 1 || stats.RecentCorrelationCount != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestEngineCriticalFindingFiresBothEvents(t *testing.T) {
	th := testThresholds()
	th.SeverityMedium = 20
	th.SeverityHigh = 30
	th.SeverityCritical = 50
	e := newTestEngine(t, th)
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	var detected, critical int
	e.Hub().Subscribe(EventCorrelationDetected, func(Event) { detected++ })
	e.Hub().Subscribe(EventCriticalCorrelation, func(Event) { critical++ })

	// Full overlap, dense pairing and $1.2M combined volume score far above
	// the lowered critical cut point.
	res := e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 100_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 100_000, now),
	)
	if !res.HasCorrelation {
		t.Fatalf("expected correlation")
	}
	if res.Correlation.Severity != models.SeverityCritical {
		t.Fatalf("expected CRITICAL severity, got %s", res.Correlation.Severity)
	}
	if detected != 1 || critical != 1 {
		t.Errorf("critical finding must fire both events, got detected=%d critical=%d", detected, critical)
	}
}

func TestEngineCooldownSuppressesRepeatFindings(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}
	tradesA := coordinatedTrades("mkt-a", wallets, 3, 10_000, now)
	tradesB := coordinatedTrades("mkt-b", wallets, 3, 10_000, now)

	var events int
	e.Hub().Subscribe(EventCorrelationDetected, func(Event) { events++ })

	e.AnalyzeCorrelation(tradesA, tradesB)
	e.AnalyzeCorrelation(tradesA, tradesB)
	if got := e.Ledger().Len(); got != 1 {
		t.Fatalf("second analysis inside cooldown must be suppressed, got %d findings", got)
	}
	if events != 1 {
		t.Errorf("suppressed finding must not be eventable, got %d events", events)
	}

	e.AnalyzeCorrelation(tradesA, tradesB, AnalyzeOptions{BypassCooldown: true})
	if got := e.Ledger().Len(); got != 2 {
		t.Fatalf("bypassCooldown must record, got %d findings", got)
	}
	if events != 2 {
		t.Errorf("bypassed finding must fire events, got %d", events)
	}
}

func TestEngineClearSemantics(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	e.AddRelation(RelationSpec{MarketIDA: "mkt-a", MarketIDB: "mkt-b", RelationType: models.RelationSameTopic, Strength: 0.9})
	e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)

	e.ClearCorrelations()
	if e.Ledger().Len() != 0 {
		t.Errorf("clearCorrelations must empty history")
	}
	if e.Graph().Len() != 1 {
		t.Errorf("clearCorrelations must preserve relations")
	}

	e.ClearAll()
	if e.Graph().Len() != 0 {
		t.Errorf("clearAll must clear the relation graph")
	}
}

func TestEngineBatchSkipsUnrelatedPairs(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	batch := map[string][]models.CorrelationTrade{
		"mkt-a": coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		"mkt-b": coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
		"mkt-c": coordinatedTrades("mkt-c", wallets, 3, 10_000, now),
	}

	// Empty graph: every pair is analyzed.
	res := e.AnalyzeMultiplePairs(batch)
	if res.TotalPairsAnalyzed != 3 {
		t.Fatalf("expected 3 pairs with empty graph, got %d", res.TotalPairsAnalyzed)
	}
	if len(res.Correlations) == 0 {
		t.Errorf("expected findings from coordinated batch")
	}

	// Non-empty graph: only the declared pair is analyzed.
	e.ClearAll()
	e.AddRelation(RelationSpec{MarketIDA: "mkt-a", MarketIDB: "mkt-b", RelationType: models.RelationSameTopic, Strength: 1})
	res = e.AnalyzeMultiplePairs(batch)
	if res.TotalPairsAnalyzed != 1 {
		t.Fatalf("expected only the related pair, got %d", res.TotalPairsAnalyzed)
	}
	if len(res.Correlations) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(res.Correlations))
	}
	c := res.Correlations[0]
	if pairKey(c.MarketIDA, c.MarketIDB) != pairKey("mkt-a", "mkt-b") {
		t.Errorf("finding for unexpected pair %s/%s", c.MarketIDA, c.MarketIDB)
	}
}

func TestEngineBatchCooldownExcludesSuppressed(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}
	batch := map[string][]models.CorrelationTrade{
		"mkt-a": coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		"mkt-b": coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	}

	first := e.AnalyzeMultiplePairs(batch)
	second := e.AnalyzeMultiplePairs(batch)
	if len(first.Correlations) != 1 {
		t.Fatalf("expected 1 finding in first batch, got %d", len(first.Correlations))
	}
	if len(second.Correlations) != 0 {
		t.Errorf("cooldown-suppressed findings must not surface in batch results")
	}
	if second.TotalPairsAnalyzed != 1 {
		t.Errorf("pair is still analyzed during cooldown, got %d", second.TotalPairsAnalyzed)
	}
}

func TestEventHubIsolatesPanickingHandlers(t *testing.T) {
	hub := NewHub(nil)
	var after bool
	hub.Subscribe(EventCorrelationDetected, func(Event) { panic("boom") })
	hub.Subscribe(EventCorrelationDetected, func(Event) { after = true })

	hub.Publish(Event{Kind: EventCorrelationDetected, Correlation: &models.Correlation{}})
	if !after {
		t.Fatalf("a panicking handler must not block later handlers")
	}
}

func TestEngineSummary(t *testing.T) {
	e := newTestEngine(t, testThresholds())
	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}

	e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-c", wallets, 3, 10_000, now),
	)

	s := e.Summary()
	if s.TotalAnalyses != 2 {
		t.Errorf("expected 2 analyses, got %d", s.TotalAnalyses)
	}
	if len(s.TopMarketPairs) != 2 {
		t.Errorf("expected 2 tracked pairs, got %d", len(s.TopMarketPairs))
	}
	if len(s.TopWallets) != 2 {
		t.Fatalf("expected 2 tracked wallets, got %d", len(s.TopWallets))
	}
	if s.TopWallets[0].Count != 2 {
		t.Errorf("each wallet drove both findings, got count %d", s.TopWallets[0].Count)
	}
}

func TestEngineEventsDisabled(t *testing.T) {
	e, err := NewEngine(testThresholds(), false, nil, nil)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	var events int
	e.Hub().Subscribe(EventCorrelationDetected, func(Event) { events++ })

	now := time.Now().UnixMilli()
	wallets := []string{"0xw1", "0xw2"}
	res := e.AnalyzeCorrelation(
		coordinatedTrades("mkt-a", wallets, 3, 10_000, now),
		coordinatedTrades("mkt-b", wallets, 3, 10_000, now),
	)
	if !res.HasCorrelation {
		t.Fatalf("detection itself is unaffected by event gating")
	}
	if events != 0 {
		t.Errorf("events disabled: expected 0 deliveries, got %d", events)
	}
	if e.Ledger().Len() != 1 {
		t.Errorf("finding must still be recorded with events disabled")
	}
}
