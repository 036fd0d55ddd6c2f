package usecase

import (
	"context"
	"sync"
	"time"

	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/middleware"
	xlogger "PolyCorr/pkg/logger"
)

// TradeCollector drives the live market stream and feeds every trade
// through the realtime pipeline into the batcher.
type TradeCollector struct {
	stream   domrepo.MarketStream
	pipeline *middleware.RealtimePipeline
	metrics  domrepo.Metrics
	logger   *xlogger.Logger

	reconnectDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

func NewTradeCollector(stream domrepo.MarketStream, pipeline *middleware.RealtimePipeline, metrics domrepo.Metrics, l *xlogger.Logger, reconnectDelay time.Duration) *TradeCollector {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &TradeCollector{
		stream:         stream,
		pipeline:       pipeline,
		metrics:        metrics,
		logger:         l,
		reconnectDelay: reconnectDelay,
	}
}

// Start connects, subscribes and consumes the stream until the context is
// cancelled or Stop is called. Stream errors trigger a reconnect with a
// fixed delay rather than tearing the collector down.
func (c *TradeCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.mu.Unlock()

	if err := c.stream.Connect(runCtx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(runCtx); err != nil {
		return err
	}

	c.pipeline.Start(runCtx)
	go c.consume(runCtx)
	return nil
}

func (c *TradeCollector) consume(ctx context.Context) {
	trades, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-trades:
			if !ok {
				c.reconnect(ctx)
				trades, errs = c.stream.Read(ctx)
				continue
			}
			if t == nil {
				continue
			}
			if err := c.pipeline.Process(ctx, t); err != nil {
				c.logger.Warn("trade rejected", xlogger.String("market", t.MarketID), xlogger.Error(err))
			}
		case err, ok := <-errs:
			if !ok {
				continue
			}
			if c.metrics != nil {
				c.metrics.RecordError("stream")
			}
			c.logger.Warn("stream error", xlogger.Error(err))
			c.reconnect(ctx)
			trades, errs = c.stream.Read(ctx)
		}
	}
}

func (c *TradeCollector) reconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.logger.Warn("reconnect failed", xlogger.Error(err))
			continue
		}
		c.logger.Info("stream reconnected")
		return
	}
}

// Stop tears the collector down and closes the stream.
func (c *TradeCollector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	c.cancel()
	c.pipeline.Stop()
	return c.stream.Close()
}
