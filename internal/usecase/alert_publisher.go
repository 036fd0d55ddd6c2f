package usecase

import (
	"context"
	"time"

	"PolyCorr/internal/domain/models"
	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/engine"
	xlogger "PolyCorr/pkg/logger"
)

// AlertDispatcher bridges engine events to the downstream alert topic and
// the finding sink. It subscribes once and runs on the engine's emitting
// goroutine, so the actual I/O is handed off to avoid stalling analysis.
type AlertDispatcher struct {
	publisher domrepo.AlertPublisher
	sink      domrepo.FindingSink
	metrics   domrepo.Metrics
	logger    *xlogger.Logger

	timeout time.Duration
}

func NewAlertDispatcher(publisher domrepo.AlertPublisher, sink domrepo.FindingSink, metrics domrepo.Metrics, l *xlogger.Logger) *AlertDispatcher {
	return &AlertDispatcher{
		publisher: publisher,
		sink:      sink,
		metrics:   metrics,
		logger:    l,
		timeout:   10 * time.Second,
	}
}

// Attach wires the dispatcher onto the hub. Every accepted finding is
// persisted; critical findings are additionally published as alerts.
func (d *AlertDispatcher) Attach(hub *engine.Hub) {
	if hub == nil {
		return
	}
	hub.Subscribe(engine.EventCorrelationDetected, func(ev engine.Event) {
		if ev.Correlation == nil {
			return
		}
		c := *ev.Correlation
		go d.store(&c)
	})
	hub.Subscribe(engine.EventCriticalCorrelation, func(ev engine.Event) {
		if ev.Correlation == nil {
			return
		}
		c := *ev.Correlation
		go d.alert(&c)
	})
}

func (d *AlertDispatcher) store(c *models.Correlation) {
	if d.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sink.Store(ctx, c); err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("finding_store")
		}
		if d.logger != nil {
			d.logger.Error("store finding failed",
				xlogger.String("correlation_id", c.CorrelationID),
				xlogger.Error(err),
			)
		}
	}
}

func (d *AlertDispatcher) alert(c *models.Correlation) {
	if d.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, c); err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("alert_publish")
		}
		if d.logger != nil {
			d.logger.Error("publish alert failed",
				xlogger.String("correlation_id", c.CorrelationID),
				xlogger.Error(err),
			)
		}
		return
	}
	if d.logger != nil {
		d.logger.Info("critical correlation alerted",
			xlogger.String("correlation_id", c.CorrelationID),
			xlogger.String("market_a", c.MarketIDA),
			xlogger.String("market_b", c.MarketIDB),
		)
	}
}
