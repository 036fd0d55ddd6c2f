package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		EnableEvents          bool          `yaml:"enable_events"`
		AlertCooldown         time.Duration `yaml:"alert_cooldown"`
		MaxRecentCorrelations int           `yaml:"max_recent_correlations"`
		AnalysisWindow        time.Duration `yaml:"analysis_window"`
		SimultaneousWindow    time.Duration `yaml:"simultaneous_window"`
		MinOverlappingWallets int           `yaml:"min_overlapping_wallets"`
		MinTradePairs         int           `yaml:"min_trade_pairs"`
		MinVolumeUSD          float64       `yaml:"min_volume_usd"`
		MinCorrelationScore   float64       `yaml:"min_correlation_score"`
		Severity              struct {
			Medium   float64 `yaml:"medium"`
			High     float64 `yaml:"high"`
			Critical float64 `yaml:"critical"`
		} `yaml:"severity"`
	} `yaml:"engine"`
	Ingest struct {
		Source        string        `yaml:"source"` // websocket or kafka
		FlushInterval time.Duration `yaml:"flush_interval"`
		FlushSize     int           `yaml:"flush_size"`
		MaxRPS        int           `yaml:"max_rps"`
		BufferSize    int           `yaml:"buffer_size"`
	} `yaml:"ingest"`
	Polymarket struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		Markets        []string      `yaml:"markets"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"polymarket"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		TradesTopic string   `yaml:"trades_topic"`
		AlertsTopic string   `yaml:"alerts_topic"`
		LogsTopic   string   `yaml:"logs_topic"`
		Compression string   `yaml:"compression"`
		Producer    struct {
			RequiredAcks int           `yaml:"required_acks"`
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Catalog struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"catalog"`
	AutoDetect struct {
		Enabled           bool          `yaml:"enabled"`
		Interval          time.Duration `yaml:"interval"`
		MinSharedKeywords int           `yaml:"min_shared_keywords"`
	} `yaml:"autodetect"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("POLYMARKET_WS_URL"); v != "" {
		c.Polymarket.WebSocketURL = v
	}
	if v := os.Getenv("MARKETS"); v != "" {
		c.Polymarket.Markets = strings.Split(v, ",")
	}
	if v := os.Getenv("INGEST_SOURCE"); v != "" {
		c.Ingest.Source = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TRADES_TOPIC"); v != "" {
		c.Kafka.TradesTopic = v
	}
	if v := os.Getenv("KAFKA_ALERTS_TOPIC"); v != "" {
		c.Kafka.AlertsTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Ingest.Source != "websocket" && c.Ingest.Source != "kafka" {
		return fmt.Errorf("ingest.source must be 'websocket' or 'kafka', got '%s'", c.Ingest.Source)
	}
	if c.Ingest.Source == "websocket" && len(c.Polymarket.Markets) == 0 {
		return fmt.Errorf("polymarket.markets cannot be empty when ingesting over websocket")
	}
	if c.Ingest.Source == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when ingesting over kafka")
	}
	// The engine re-validates the full threshold ladder at construction; this
	// structural check fails fast on an obviously broken file.
	sev := c.Engine.Severity
	if sev.Critical != 0 && sev.Critical <= sev.High {
		return fmt.Errorf("engine.severity must ascend: critical (%v) <= high (%v)", sev.Critical, sev.High)
	}
	if sev.High != 0 && sev.High <= sev.Medium {
		return fmt.Errorf("engine.severity must ascend: high (%v) <= medium (%v)", sev.High, sev.Medium)
	}
	return nil
}
