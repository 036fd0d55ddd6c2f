package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PolyCorr/internal/engine"
	"PolyCorr/internal/usecase"
	pkgch "PolyCorr/pkg/clickhouse"
	"PolyCorr/pkg/config"
	xhttp "PolyCorr/pkg/http"
	pkgkafka "PolyCorr/pkg/kafka"
	applogger "PolyCorr/pkg/logger"
	"PolyCorr/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger
	eng    *engine.Engine

	collector  *usecase.TradeCollector
	batcher    *usecase.TradeBatcher
	dispatcher *usecase.AlertDispatcher
	autoJob    *usecase.AutoDetectJob

	consumer      *pkgkafka.Consumer
	tradesHandler pkgkafka.MessageHandler

	chClient      *pkgch.Client
	queueConsumer *queue.RedisQueue

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	closers []func() error
}

// New creates an App. Optional components (collector, consumer, queue) may
// be nil depending on the configured ingest source and redis settings.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	eng *engine.Engine,
	collector *usecase.TradeCollector,
	batcher *usecase.TradeBatcher,
	dispatcher *usecase.AlertDispatcher,
	autoJob *usecase.AutoDetectJob,
	consumer *pkgkafka.Consumer,
	tradesHandler pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	queueConsumer *queue.RedisQueue,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:           cfg,
		logger:        l,
		eng:           eng,
		collector:     collector,
		batcher:       batcher,
		dispatcher:    dispatcher,
		autoJob:       autoJob,
		consumer:      consumer,
		tradesHandler: tradesHandler,
		chClient:      chClient,
		queueConsumer: queueConsumer,
		httpHandler:   httpHandler,
	}
}

// AddCloser registers a resource closed during shutdown, after the
// ingestion paths have stopped.
func (a *App) AddCloser(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Run starts every configured component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.dispatcher.Attach(a.eng.Hub())
	a.batcher.Start(ctx)

	switch a.cfg.Ingest.Source {
	case "websocket":
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector start failed", applogger.Error(err))
			return err
		}
		l.Info("trade collector started", applogger.Strings("markets", a.cfg.Polymarket.Markets))
	case "kafka":
		a.consumer.RegisterHandler(a.tradesHandler)
		a.consumer.WithConsumerHook(pkgkafka.NoopHook{})
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.tradesHandler.Topic()))
	}

	if a.queueConsumer != nil {
		if err := a.queueConsumer.Start(); err != nil {
			l.Error("queue start failed", applogger.Error(err))
			return err
		}
		a.queueConsumer.StartRetryProcessor()
		l.Info("relation sweep queue started")
	}

	if a.cfg.AutoDetect.Enabled && a.cfg.AutoDetect.Interval > 0 {
		go a.sweepLoop(ctx)
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// sweepLoop re-runs relation auto-detection on the configured interval so
// the graph tracks newly listed markets.
func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.AutoDetect.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload := usecase.AutoDetectPayload{MinSharedKeywords: a.cfg.AutoDetect.MinSharedKeywords}
			if err := a.autoJob.Handle(ctx, payload); err != nil {
				a.logger.Warn("scheduled relation sweep failed", applogger.Error(err))
			}
		}
	}
}

func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil && a.cfg.Ingest.Source == "kafka" {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	// Final flush before the engine loses its feeders.
	a.batcher.Stop()

	if a.queueConsumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.queueConsumer.Stop(stopCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	for _, fn := range a.closers {
		if err := fn(); err != nil {
			l.Warn("close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
