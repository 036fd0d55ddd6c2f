package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"PolyCorr/internal/domain/repository"
	"PolyCorr/internal/engine"
	"PolyCorr/internal/handler/api"
	mid "PolyCorr/internal/middleware"
	internalrepo "PolyCorr/internal/repository"
	icache "PolyCorr/internal/service/cache"
	"PolyCorr/internal/service/polymarket"
	"PolyCorr/internal/usecase"
	pkgcache "PolyCorr/pkg/cache"
	pkgch "PolyCorr/pkg/clickhouse"
	"PolyCorr/pkg/config"
	xhttp "PolyCorr/pkg/http"
	pkgkafka "PolyCorr/pkg/kafka"
	applogger "PolyCorr/pkg/logger"
	"PolyCorr/pkg/metrics"
	"PolyCorr/pkg/queue"
	"PolyCorr/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine builds the correlation engine from configured thresholds.
func ProvideEngine(cfg *config.Config, l *applogger.Logger, m repository.Metrics) (*engine.Engine, error) {
	t := engine.DefaultThresholds()
	if cfg.Engine.AlertCooldown > 0 {
		t.AlertCooldown = cfg.Engine.AlertCooldown
	}
	if cfg.Engine.MaxRecentCorrelations > 0 {
		t.MaxRecentCorrelations = cfg.Engine.MaxRecentCorrelations
	}
	if cfg.Engine.AnalysisWindow > 0 {
		t.AnalysisWindow = cfg.Engine.AnalysisWindow
	}
	if cfg.Engine.SimultaneousWindow > 0 {
		t.SimultaneousWindow = cfg.Engine.SimultaneousWindow
	}
	if cfg.Engine.MinOverlappingWallets > 0 {
		t.MinOverlappingWallets = cfg.Engine.MinOverlappingWallets
	}
	if cfg.Engine.MinTradePairs > 0 {
		t.MinTradePairs = cfg.Engine.MinTradePairs
	}
	if cfg.Engine.MinVolumeUSD > 0 {
		t.MinVolumeUSD = cfg.Engine.MinVolumeUSD
	}
	if cfg.Engine.MinCorrelationScore > 0 {
		t.MinCorrelationScore = cfg.Engine.MinCorrelationScore
	}
	if cfg.Engine.Severity.Medium > 0 {
		t.SeverityMedium = cfg.Engine.Severity.Medium
	}
	if cfg.Engine.Severity.High > 0 {
		t.SeverityHigh = cfg.Engine.Severity.High
	}
	if cfg.Engine.Severity.Critical > 0 {
		t.SeverityCritical = cfg.Engine.Severity.Critical
	}
	return engine.NewEngine(t, cfg.Engine.EnableEvents, l, m)
}

// ProvideClickHouseClient creates the ClickHouse client and ensures the
// findings schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideFindingSink creates the ClickHouse findings repository.
func ProvideFindingSink(chClient *pkgch.Client, l *applogger.Logger) (*internalrepo.ClickHouseFindings, error) {
	sink := internalrepo.NewClickHouseFindings(chClient, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink.Init(ctx); err != nil {
		return nil, fmt.Errorf("findings schema: %w", err)
	}
	return sink, nil
}

// ProvideKafkaProducer creates the shared Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher creates the alerts topic publisher. Nil when no
// brokers are configured; the dispatcher degrades to persist-only.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil || cfg.Kafka.AlertsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaAlerts(producer, cfg.Kafka.AlertsTopic)
}

// ProvideKafkaConsumer creates the trades consumer for kafka ingest mode.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMarketStream creates the Polymarket websocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return polymarket.New(
		cfg.Polymarket.WebSocketURL,
		cfg.Polymarket.Markets,
		cfg.Polymarket.ReconnectDelay,
		cfg.Polymarket.PingInterval,
	)
}

// ProvideTradeBatcher creates the per-market batcher feeding the engine.
func ProvideTradeBatcher(eng *engine.Engine, m repository.Metrics, l *applogger.Logger, sink *internalrepo.ClickHouseFindings, cfg *config.Config) *usecase.TradeBatcher {
	return usecase.NewTradeBatcher(eng, m, l, sink, cfg.Ingest.FlushInterval, cfg.Ingest.FlushSize)
}

// ProvidePipeline builds the validation and throttling pipeline in front
// of the batcher.
func ProvidePipeline(batcher *usecase.TradeBatcher, m repository.Metrics, cfg *config.Config) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(batcher, m,
		mid.WithMaxRPS(cfg.Ingest.MaxRPS),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
	)
}

// ProvideTradeCollector creates the websocket collector.
func ProvideTradeCollector(
	stream repository.MarketStream,
	pipeline *mid.RealtimePipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.TradeCollector {
	return usecase.NewTradeCollector(stream, pipeline, m, l, cfg.Polymarket.ReconnectDelay)
}

// ProvideTradesHandler registers the kafka handler for the trades topic.
func ProvideTradesHandler(pipeline *mid.RealtimePipeline, cfg *config.Config) *usecase.TradesHandler {
	return usecase.NewTradesHandler(cfg.Kafka.TradesTopic, pipeline)
}

// ProvideAlertDispatcher bridges engine events to Kafka and ClickHouse.
func ProvideAlertDispatcher(
	pub repository.AlertPublisher,
	sink *internalrepo.ClickHouseFindings,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AlertDispatcher {
	return usecase.NewAlertDispatcher(pub, sink, m, l)
}

// ProvideRedisClient creates the shared redis connection, nil when redis
// is disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCatalogCache picks the catalog cache backend: layered over redis
// when available, in-process otherwise.
func ProvideCatalogCache(rdb *redis.Client, cfg *config.Config) pkgcache.Service {
	if rdb != nil {
		host, port := splitAddr(cfg.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix("polycorr"),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc)
		}
	}
	return pkgcache.NewMemoryCache()
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideMarketCatalog creates the markets API client with caching.
func ProvideMarketCatalog(catalogCache pkgcache.Service, l *applogger.Logger, cfg *config.Config) repository.MarketCatalog {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Catalog.Timeout))
	return internalrepo.NewHTTPMarketCatalog(client, catalogCache, l, cfg.Catalog.BaseURL, cfg.Catalog.CacheTTL)
}

// ProvideAutoDetectJob creates the relation sweep job.
func ProvideAutoDetectJob(eng *engine.Engine, catalog repository.MarketCatalog, l *applogger.Logger, cfg *config.Config) *usecase.AutoDetectJob {
	return usecase.NewAutoDetectJob(eng, catalog, l, cfg.AutoDetect.MinSharedKeywords)
}

// ProvideSweepQueue creates the redis-backed queue running sweep jobs,
// nil when redis is disabled.
func ProvideSweepQueue(rdb *redis.Client, job *usecase.AutoDetectJob, l *applogger.Logger) *queue.RedisQueue {
	if rdb == nil {
		return nil
	}
	q := queue.NewRedisQueue(l,
		&queue.QueueConfig{Workers: 1, RetryLimit: 3, RetryDelay: 30 * time.Second},
		rdb,
		queue.ModeProducerConsumer,
	)
	q.RegisterJob(job)
	return q
}

// ProvideHistoricalSweep replays stored trade windows through the engine.
func ProvideHistoricalSweep(eng *engine.Engine, sink *internalrepo.ClickHouseFindings, cfg *config.Config) *usecase.HistoricalSweep {
	return usecase.NewHistoricalSweep(eng, sink, cfg.Engine.AnalysisWindow, 10000)
}

// ProvideSummaryCache backs the summary endpoint: redis when available so
// replicas share entries, in-process TTL cache otherwise.
func ProvideSummaryCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHTTPHandler creates the Echo handler for the correlation API.
func ProvideHTTPHandler(
	l *applogger.Logger,
	eng *engine.Engine,
	sweepQueue *queue.RedisQueue,
	job *usecase.AutoDetectJob,
	historical *usecase.HistoricalSweep,
	summaryCache icache.BytesCache,
) xhttp.Handler {
	var qs queue.QueueService
	if sweepQueue != nil {
		qs = sweepQueue
	}
	return api.NewCorrelationsEchoHandler(l, eng, qs, job, historical, summaryCache)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	eng *engine.Engine,
	collector *usecase.TradeCollector,
	batcher *usecase.TradeBatcher,
	dispatcher *usecase.AlertDispatcher,
	job *usecase.AutoDetectJob,
	consumer *pkgkafka.Consumer,
	tradesHandler *usecase.TradesHandler,
	chClient *pkgch.Client,
	sweepQueue *queue.RedisQueue,
	httpHandler xhttp.Handler,
	producer *pkgkafka.Producer,
	pub repository.AlertPublisher,
) *server.App {
	app := server.New(cfg, l, eng, collector, batcher, dispatcher, job,
		consumer, tradesHandler, chClient, sweepQueue, httpHandler)

	// Ship aggregated logs to Kafka when a logs topic is configured.
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	if pub != nil {
		app.AddCloser(pub.Close)
	}
	return app
}
