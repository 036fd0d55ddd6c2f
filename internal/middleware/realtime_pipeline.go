package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PolyCorr/internal/domain/models"
	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/service/ratelimit"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, t *models.CorrelationTrade) error
}

// RealtimePipeline sits between the trade stream and the batcher.
// It validates, throttles per market, and buffers when downstream is unavailable.
type RealtimePipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  int
	bufSize int
	bufCh   chan *models.CorrelationTrade
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max trades per second per market.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  50,   // default throttle per market
		bufSize: 2000, // default buffer
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.CorrelationTrade, p.bufSize)
	return p
}

// Start launches background flushing of buffered trades.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Process(ctx, t); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a trade downstream, buffering on errors.
func (p *RealtimePipeline) Process(ctx context.Context, t *models.CorrelationTrade) error {
	if err := validateTrade(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(t.MarketID, float64(p.maxRPS), float64(p.maxRPS)) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		// buffer for retry; drop when full
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
		return nil
	}
	p.metrics.RecordTradeIngested(t.MarketID)
	return nil
}

func validateTrade(t *models.CorrelationTrade) error {
	if t == nil {
		return fmt.Errorf("trade is nil")
	}
	if t.MarketID == "" {
		return fmt.Errorf("trade market id is empty")
	}
	if t.WalletAddress == "" {
		return fmt.Errorf("trade wallet address is empty")
	}
	if t.Side != models.SideBuy && t.Side != models.SideSell {
		return fmt.Errorf("trade side %q is invalid", t.Side)
	}
	if t.SizeUSD < 0 {
		return fmt.Errorf("trade size is negative")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("trade timestamp is missing")
	}
	return nil
}
