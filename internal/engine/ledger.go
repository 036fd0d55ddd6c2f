package engine

import (
	"strings"
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
)

// Ledger owns the canonical copy of every accepted correlation finding. It
// enforces the per-pair alert cooldown, bounds history FIFO-style, and runs
// the status lifecycle. Queries hand out copies; callers never see the
// backing slice.
type Ledger struct {
	mu          sync.RWMutex
	history     []models.Correlation
	lastByPair  map[string]time.Time
	maxRecent   int
	cooldown    time.Duration
	totalStored int64
	now         func() time.Time
}

// NewLedger creates a ledger bounded to maxRecent entries with the given
// cooldown between findings for the same market pair.
func NewLedger(maxRecent int, cooldown time.Duration) *Ledger {
	if maxRecent < 1 {
		maxRecent = 1
	}
	return &Ledger{
		lastByPair: make(map[string]time.Time),
		maxRecent:  maxRecent,
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// Record stores a finding unless the market pair is still cooling down.
// Returns false when the finding was suppressed. bypassCooldown forces
// acceptance (used for operator-triggered re-analysis).
func (l *Ledger) Record(c *models.Correlation, bypassCooldown bool) bool {
	if c == nil {
		return false
	}
	key := pairKey(c.MarketIDA, c.MarketIDB)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !bypassCooldown && l.cooldown > 0 {
		if last, ok := l.lastByPair[key]; ok && now.Sub(last) < l.cooldown {
			return false
		}
	}
	l.lastByPair[key] = now
	l.history = append(l.history, *c)
	if len(l.history) > l.maxRecent {
		// FIFO eviction of the oldest finding.
		l.history = l.history[len(l.history)-l.maxRecent:]
	}
	l.totalStored++
	return true
}

// UpdateStatus sets the status of the finding with the given id. Re-applying
// the same status is an idempotent overwrite. Returns false for unknown ids.
func (l *Ledger) UpdateStatus(correlationID string, status models.CorrelationStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.history {
		if l.history[i].CorrelationID == correlationID {
			l.history[i].Status = status
			return true
		}
	}
	return false
}

// Flag marks a finding as FLAGGED for triage.
func (l *Ledger) Flag(correlationID string) bool {
	return l.UpdateStatus(correlationID, models.StatusFlagged)
}

// Dismiss marks a finding as DISMISSED.
func (l *Ledger) Dismiss(correlationID string) bool {
	return l.UpdateStatus(correlationID, models.StatusDismissed)
}

// Get returns the finding with the given id, or nil.
func (l *Ledger) Get(correlationID string) *models.Correlation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.history {
		if l.history[i].CorrelationID == correlationID {
			c := l.history[i]
			return &c
		}
	}
	return nil
}

// Recent returns up to limit findings, newest first. limit <= 0 means all.
func (l *Ledger) Recent(limit int) []models.Correlation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Correlation, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.history[i])
	}
	return out
}

// ForMarket returns findings where the market appears on either side.
func (l *Ledger) ForMarket(marketID string) []models.Correlation {
	return l.filter(func(c *models.Correlation) bool {
		return c.MarketIDA == marketID || c.MarketIDB == marketID
	})
}

// ForWallet returns findings whose overlap set contains the wallet.
// The lookup is case-insensitive, matching analyzer canonicalization.
func (l *Ledger) ForWallet(walletAddress string) []models.Correlation {
	w := strings.ToLower(walletAddress)
	return l.filter(func(c *models.Correlation) bool {
		for _, addr := range c.WalletAddresses {
			if addr == w {
				return true
			}
		}
		return false
	})
}

// BySeverity returns findings at exactly the given severity.
func (l *Ledger) BySeverity(sev models.Severity) []models.Correlation {
	return l.filter(func(c *models.Correlation) bool { return c.Severity == sev })
}

// ByType returns findings of exactly the given correlation type.
func (l *Ledger) ByType(t models.CorrelationType) []models.Correlation {
	return l.filter(func(c *models.Correlation) bool { return c.CorrelationType == t })
}

// Flagged returns findings currently in FLAGGED status.
func (l *Ledger) Flagged() []models.Correlation {
	return l.filter(func(c *models.Correlation) bool { return c.Status == models.StatusFlagged })
}

func (l *Ledger) filter(keep func(*models.Correlation) bool) []models.Correlation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Correlation
	for i := len(l.history) - 1; i >= 0; i-- {
		if keep(&l.history[i]) {
			out = append(out, l.history[i])
		}
	}
	return out
}

// Len returns the number of retained findings.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}

// Total returns the count of findings accepted since construction,
// including entries since evicted from the bounded history.
func (l *Ledger) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalStored
}

// Clear empties history and cooldown state. The cumulative Total counter is
// preserved.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.history = nil
	l.lastByPair = make(map[string]time.Time)
	l.mu.Unlock()
}
