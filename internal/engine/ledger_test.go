package engine

import (
	"fmt"
	"testing"
	"time"

	"PolyCorr/internal/domain/models"
)

func mkCorrelation(id, marketA, marketB string, sev models.Severity) *models.Correlation {
	return &models.Correlation{
		CorrelationID:   id,
		MarketIDA:       marketA,
		MarketIDB:       marketB,
		WalletAddresses: []string{"0xw1", "0xw2"},
		WalletCount:     2,
		TradePairCount:  4,
		Severity:        sev,
		CorrelationType: models.CorrelationSimultaneous,
		FlagReasons:     []string{"2 overlapping wallets trading both markets"},
		Status:          models.StatusDetected,
		DetectedAt:      time.Now(),
	}
}

func TestLedgerCooldown(t *testing.T) {
	l := NewLedger(100, 30*time.Minute)

	if !l.Record(mkCorrelation("c1", "a", "b", models.SeverityHigh), false) {
		t.Fatalf("first finding must be accepted")
	}
	if l.Record(mkCorrelation("c2", "b", "a", models.SeverityHigh), false) {
		t.Fatalf("repeat finding inside cooldown must be suppressed")
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 retained finding, got %d", l.Len())
	}

	if !l.Record(mkCorrelation("c3", "a", "b", models.SeverityHigh), true) {
		t.Fatalf("bypassCooldown must force acceptance")
	}
	if l.Len() != 2 {
		t.Errorf("expected 2 retained findings after bypass, got %d", l.Len())
	}

	// A different pair is not affected by the cooldown.
	if !l.Record(mkCorrelation("c4", "a", "c", models.SeverityLow), false) {
		t.Errorf("distinct pair must not share cooldown state")
	}
}

func TestLedgerFIFOEviction(t *testing.T) {
	l := NewLedger(3, 0)
	for i := 0; i < 5; i++ {
		c := mkCorrelation(fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i), "x", models.SeverityLow)
		if !l.Record(c, false) {
			t.Fatalf("record %d failed", i)
		}
	}
	if l.Len() != 3 {
		t.Fatalf("expected history capped at 3, got %d", l.Len())
	}
	if l.Total() != 5 {
		t.Errorf("expected cumulative total 5, got %d", l.Total())
	}
	recent := l.Recent(0)
	if recent[0].CorrelationID != "c4" || recent[2].CorrelationID != "c2" {
		t.Errorf("expected newest-first c4..c2, got %s..%s", recent[0].CorrelationID, recent[2].CorrelationID)
	}
	if l.Get("c0") != nil {
		t.Errorf("oldest finding should have been evicted")
	}
}

func TestLedgerStatusLifecycle(t *testing.T) {
	l := NewLedger(10, 0)
	l.Record(mkCorrelation("c1", "a", "b", models.SeverityMedium), false)

	if !l.Flag("c1") {
		t.Fatalf("flagging a known id must succeed")
	}
	if got := l.Get("c1").Status; got != models.StatusFlagged {
		t.Errorf("expected FLAGGED, got %s", got)
	}
	// Re-flagging is an idempotent overwrite.
	if !l.Flag("c1") {
		t.Errorf("re-flagging must succeed")
	}
	if !l.Dismiss("c1") {
		t.Fatalf("dismissing a flagged finding must succeed")
	}
	if got := l.Get("c1").Status; got != models.StatusDismissed {
		t.Errorf("expected DISMISSED, got %s", got)
	}

	if l.UpdateStatus("nope", models.StatusFlagged) {
		t.Errorf("unknown id must return false, not error")
	}
	if l.Flag("nope") || l.Dismiss("nope") {
		t.Errorf("unknown id must return false")
	}
}

func TestLedgerQueries(t *testing.T) {
	l := NewLedger(10, 0)
	c1 := mkCorrelation("c1", "a", "b", models.SeverityHigh)
	c2 := mkCorrelation("c2", "b", "c", models.SeverityLow)
	c2.WalletAddresses = []string{"0xzeta"}
	c2.CorrelationType = models.CorrelationNegative
	l.Record(c1, false)
	l.Record(c2, false)
	l.Flag("c2")

	if got := l.ForMarket("b"); len(got) != 2 {
		t.Errorf("expected 2 findings touching market b, got %d", len(got))
	}
	if got := l.ForMarket("a"); len(got) != 1 {
		t.Errorf("expected 1 finding touching market a, got %d", len(got))
	}
	if got := l.ForWallet("0xW1"); len(got) != 1 {
		t.Errorf("wallet query must be case-insensitive, got %d", len(got))
	}
	if got := l.BySeverity(models.SeverityHigh); len(got) != 1 || got[0].CorrelationID != "c1" {
		t.Errorf("unexpected severity query result %v", got)
	}
	if got := l.ByType(models.CorrelationNegative); len(got) != 1 || got[0].CorrelationID != "c2" {
		t.Errorf("unexpected type query result %v", got)
	}
	if got := l.Flagged(); len(got) != 1 || got[0].CorrelationID != "c2" {
		t.Errorf("unexpected flagged query result %v", got)
	}
}

func TestLedgerQueriesReturnCopies(t *testing.T) {
	l := NewLedger(10, 0)
	l.Record(mkCorrelation("c1", "a", "b", models.SeverityHigh), false)

	got := l.Recent(1)
	got[0].Status = models.StatusDismissed
	if l.Get("c1").Status != models.StatusDetected {
		t.Errorf("mutating a query result must not touch the canonical copy")
	}
}

func TestLedgerClearResetsCooldown(t *testing.T) {
	l := NewLedger(10, time.Hour)
	l.Record(mkCorrelation("c1", "a", "b", models.SeverityHigh), false)
	l.Clear()

	if l.Len() != 0 {
		t.Fatalf("expected empty history after clear")
	}
	if !l.Record(mkCorrelation("c2", "a", "b", models.SeverityHigh), false) {
		t.Errorf("clear must also reset cooldown state")
	}
}

func TestLedgerRecentLimit(t *testing.T) {
	l := NewLedger(10, 0)
	for i := 0; i < 5; i++ {
		l.Record(mkCorrelation(fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i), "x", models.SeverityLow), false)
	}
	if got := l.Recent(2); len(got) != 2 || got[0].CorrelationID != "c4" {
		t.Errorf("unexpected limited recent result %v", got)
	}
	if got := l.Recent(50); len(got) != 5 {
		t.Errorf("limit above size should return all, got %d", len(got))
	}
}
