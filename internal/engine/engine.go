package engine

import (
	"sort"
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
	domrepo "PolyCorr/internal/domain/repository"
	xlogger "PolyCorr/pkg/logger"
)

// Engine composes the relation graph, analyzer, ledger and event hub into
// one correlation detection instance. Construct one per process and inject
// it where needed; there is no ambient shared instance.
type Engine struct {
	thresholds   Thresholds
	enableEvents bool
	hub          *Hub
	graph        *RelationGraph
	analyzer     *Analyzer
	ledger       *Ledger
	logger       *xlogger.Logger
	metrics      domrepo.Metrics

	mu           sync.Mutex
	pairHits     map[string]int64
	walletHits   map[string]int64
	analyses     int64
	analysisTime time.Duration
}

// NewEngine validates thresholds and wires the stateful components
// together. Logger and metrics may be nil.
func NewEngine(t Thresholds, enableEvents bool, l *xlogger.Logger, m domrepo.Metrics) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	hub := NewHub(l)
	graphHub := hub
	if !enableEvents {
		graphHub = nil
	}
	graph := NewRelationGraph(graphHub)
	return &Engine{
		thresholds:   t,
		enableEvents: enableEvents,
		hub:          hub,
		graph:        graph,
		analyzer:     NewAnalyzer(t, graph),
		ledger:       NewLedger(t.MaxRecentCorrelations, t.AlertCooldown),
		logger:       l,
		metrics:      m,
		pairHits:     make(map[string]int64),
		walletHits:   make(map[string]int64),
	}, nil
}

// Graph exposes the relation graph for curation and auto-detection.
func (e *Engine) Graph() *RelationGraph { return e.graph }

// Ledger exposes the finding history for queries and triage.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Hub exposes the event hub for downstream subscribers.
func (e *Engine) Hub() *Hub { return e.hub }

// AnalyzeOptions tunes a single analysis call.
type AnalyzeOptions struct {
	// BypassCooldown records the finding even when the market pair is still
	// inside the alert cooldown window.
	BypassCooldown bool
}

// AnalyzeCorrelation analyzes two trade sets and, on a qualifying finding,
// records it in the ledger (subject to the per-pair cooldown) and emits
// correlationDetected / criticalCorrelation events.
func (e *Engine) AnalyzeCorrelation(tradesA, tradesB []models.CorrelationTrade, opts ...AnalyzeOptions) models.AnalysisResult {
	var opt AnalyzeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	res, _ := e.analyze(tradesA, tradesB, opt)
	return res
}

// analyze is the shared path for ad-hoc and batch analysis. The second
// return reports whether the finding was accepted by the ledger.
func (e *Engine) analyze(tradesA, tradesB []models.CorrelationTrade, opt AnalyzeOptions) (models.AnalysisResult, bool) {
	start := time.Now()
	res := e.analyzer.Analyze(tradesA, tradesB)
	elapsed := time.Since(start)

	e.mu.Lock()
	e.analyses++
	e.analysisTime += elapsed
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.RecordLatency("analyze", elapsed.Seconds())
	}

	if !res.HasCorrelation {
		return res, false
	}

	c := res.Correlation
	if !e.ledger.Record(c, opt.BypassCooldown) {
		// Repeat finding for a cooling-down pair; skip recording and events.
		if e.metrics != nil {
			e.metrics.RecordSuppressed()
		}
		if e.logger != nil {
			e.logger.Debug("correlation suppressed by cooldown",
				xlogger.String("market_a", c.MarketIDA),
				xlogger.String("market_b", c.MarketIDB),
			)
		}
		return res, false
	}

	e.recordHits(c)
	if e.metrics != nil {
		e.metrics.RecordCorrelation(string(c.Severity))
	}
	if e.logger != nil {
		e.logger.Info("correlation detected",
			xlogger.String("id", c.CorrelationID),
			xlogger.String("market_a", c.MarketIDA),
			xlogger.String("market_b", c.MarketIDB),
			xlogger.Int("wallets", c.WalletCount),
			xlogger.Any("score", c.CorrelationScore),
			xlogger.String("severity", string(c.Severity)),
		)
	}

	if e.enableEvents {
		e.hub.Publish(Event{Kind: EventCorrelationDetected, Correlation: c})
		if c.Severity == models.SeverityCritical {
			e.hub.Publish(Event{Kind: EventCriticalCorrelation, Correlation: c})
		}
	}
	return res, true
}

func (e *Engine) recordHits(c *models.Correlation) {
	e.mu.Lock()
	e.pairHits[pairKey(c.MarketIDA, c.MarketIDB)]++
	for _, w := range c.WalletAddresses {
		e.walletHits[w]++
	}
	e.mu.Unlock()
}

// AutoDetectRelations proposes and stores keyword-overlap relations from a
// market catalog snapshot.
func (e *Engine) AutoDetectRelations(markets []models.Market, minSharedKeywords int) []models.MarketRelation {
	added := e.graph.AutoDetectRelations(markets, minSharedKeywords)
	if e.metrics != nil {
		e.metrics.SetRelationsTracked(e.graph.Len())
	}
	return added
}

// AddRelation declares a relation edge and keeps the tracked-relations gauge
// current.
func (e *Engine) AddRelation(spec RelationSpec) models.MarketRelation {
	rel := e.graph.AddRelation(spec)
	if e.metrics != nil {
		e.metrics.SetRelationsTracked(e.graph.Len())
	}
	return rel
}

// RemoveRelation drops a declared edge. Returns false when no edge exists
// for the pair.
func (e *Engine) RemoveRelation(idA, idB string) bool {
	ok := e.graph.RemoveRelation(idA, idB)
	if ok && e.metrics != nil {
		e.metrics.SetRelationsTracked(e.graph.Len())
	}
	return ok
}

// ClearCorrelations empties finding history and cooldown state. Relations
// are preserved.
func (e *Engine) ClearCorrelations() {
	e.ledger.Clear()
	e.mu.Lock()
	e.pairHits = make(map[string]int64)
	e.walletHits = make(map[string]int64)
	e.mu.Unlock()
}

// ClearAll additionally clears the relation graph.
func (e *Engine) ClearAll() {
	e.ClearCorrelations()
	e.graph.Clear()
	if e.metrics != nil {
		e.metrics.SetRelationsTracked(0)
	}
}

// Stats is the read-only counter surface of the engine.
type Stats struct {
	TotalCorrelationsDetected int64         `json:"total_correlations_detected"`
	RecentCorrelationCount    int           `json:"recent_correlation_count"`
	TotalRelationsTracked     int           `json:"total_relations_tracked"`
	EnableEvents              bool          `json:"enable_events"`
	AlertCooldown             time.Duration `json:"alert_cooldown"`
}

// PairFrequency counts accepted findings per market pair.
type PairFrequency struct {
	MarketIDA string `json:"market_id_a"`
	MarketIDB string `json:"market_id_b"`
	Count     int64  `json:"count"`
}

// WalletFrequency counts accepted findings per overlapping wallet.
type WalletFrequency struct {
	Wallet string `json:"wallet"`
	Count  int64  `json:"count"`
}

// Summary extends Stats with frequency and timing aggregates.
type Summary struct {
	Stats
	TopMarketPairs  []PairFrequency   `json:"top_market_pairs"`
	TopWallets      []WalletFrequency `json:"top_wallets"`
	TotalAnalyses   int64             `json:"total_analyses"`
	AvgAnalysisTime time.Duration     `json:"avg_analysis_time"`
}

// Stats returns the current counter snapshot.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalCorrelationsDetected: e.ledger.Total(),
		RecentCorrelationCount:    e.ledger.Len(),
		TotalRelationsTracked:     e.graph.Len(),
		EnableEvents:              e.enableEvents,
		AlertCooldown:             e.thresholds.AlertCooldown,
	}
}

const summaryTopN = 10

// Summary returns Stats plus the most frequently correlated market pairs
// and wallets and aggregate analysis timing.
func (e *Engine) Summary() Summary {
	s := Summary{Stats: e.Stats()}

	e.mu.Lock()
	s.TotalAnalyses = e.analyses
	if e.analyses > 0 {
		s.AvgAnalysisTime = e.analysisTime / time.Duration(e.analyses)
	}
	pairs := make([]PairFrequency, 0, len(e.pairHits))
	for key, n := range e.pairHits {
		a, b := splitPairKey(key)
		pairs = append(pairs, PairFrequency{MarketIDA: a, MarketIDB: b, Count: n})
	}
	wallets := make([]WalletFrequency, 0, len(e.walletHits))
	for w, n := range e.walletHits {
		wallets = append(wallets, WalletFrequency{Wallet: w, Count: n})
	}
	e.mu.Unlock()

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].MarketIDA < pairs[j].MarketIDA
	})
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].Count != wallets[j].Count {
			return wallets[i].Count > wallets[j].Count
		}
		return wallets[i].Wallet < wallets[j].Wallet
	})
	if len(pairs) > summaryTopN {
		pairs = pairs[:summaryTopN]
	}
	if len(wallets) > summaryTopN {
		wallets = wallets[:summaryTopN]
	}
	s.TopMarketPairs = pairs
	s.TopWallets = wallets
	return s
}
