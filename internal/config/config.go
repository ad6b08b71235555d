// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	"github.com/YaganovValera/analytics-system/stream-connector/common/configloader"
	"github.com/YaganovValera/analytics-system/stream-connector/common/httpserver"
	"github.com/YaganovValera/analytics-system/stream-connector/common/kafka/producer"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/common/redis"
	"github.com/YaganovValera/analytics-system/stream-connector/common/telemetry"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/binance"
	"github.com/YaganovValera/analytics-system/stream-connector/pkg/stream/wsconn"
)

// EnvPrefix prefixes every environment override, e.g. STREAM_CONNECTOR_STREAM_HOST.
const EnvPrefix = "STREAM_CONNECTOR"

// Config is the full stream-connector configuration.
type Config struct {
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	Stream         StreamConfig      `mapstructure:"stream"`
	Reconnect      backoff.Config    `mapstructure:"reconnect"`
	Kafka          KafkaConfig       `mapstructure:"kafka"`
	Redis          RedisConfig       `mapstructure:"redis"`
	Telemetry      telemetry.Config  `mapstructure:"telemetry"`
	Logging        logger.Config     `mapstructure:"logging"`
	HTTP           httpserver.Config `mapstructure:"http"`
}

// StreamConfig selects the endpoint and the streams to subscribe to.
type StreamConfig struct {
	// Host is a known name ("futures", "spot_combined", ...) or a ws/wss base URL.
	Host    string   `mapstructure:"host"`
	Streams []string `mapstructure:"streams"`

	// CommandTimeout bounds one command round-trip to the connection actor.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	Transport wsconn.Config `mapstructure:"transport"`
}

// KafkaConfig enables the Kafka sink.
type KafkaConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Topic           string `mapstructure:"topic"`
	producer.Config `mapstructure:",squash"`
}

// RedisConfig enables the latest-event cache sink.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	redis.Config `mapstructure:",squash"`
}

func init() {
	configloader.RegisterDefaultsMap(map[string]interface{}{
		"service_name":    "stream-connector",
		"service_version": "v1.0.0",

		"stream.host":                        "futures_combined",
		"stream.streams":                     []string{"btcusdt@aggTrade"},
		"stream.command_timeout":             "15s",
		"stream.transport.handshake_timeout": "10s",
		"stream.transport.write_timeout":     "5s",
		"stream.transport.read_timeout":      "0s",
		"stream.transport.read_limit":        1 << 20,
		"stream.transport.buffer_size":       64,

		"reconnect.initial_interval":     "1s",
		"reconnect.randomization_factor": 0.5,
		"reconnect.multiplier":           2.0,
		"reconnect.max_interval":         "30s",
		"reconnect.max_elapsed_time":     "0s",
		"reconnect.max_attempts":         0,

		"kafka.enabled":         false,
		"kafka.brokers":         []string{"kafka:9092"},
		"kafka.topic":           "marketdata.stream",
		"kafka.required_acks":   "all",
		"kafka.timeout":         "5s",
		"kafka.compression":     "none",
		"kafka.flush_frequency": "0s",
		"kafka.flush_messages":  0,

		"redis.enabled":    false,
		"redis.addr":       "redis:6379",
		"redis.db":         0,
		"redis.ttl":        "10m",
		"redis.key_prefix": "stream",

		"telemetry.enabled":          false,
		"telemetry.otel_endpoint":    "otel-collector:4317",
		"telemetry.insecure":         true,
		"telemetry.reconnect_period": "5s",
		"telemetry.timeout":          "5s",
		"telemetry.sampler_ratio":    1.0,

		"logging.level":    "info",
		"logging.dev_mode": false,

		"http.addr":             ":8080",
		"http.read_timeout":     "10s",
		"http.write_timeout":    "15s",
		"http.idle_timeout":     "60s",
		"http.shutdown_timeout": "5s",
		"http.metrics_path":     "/metrics",
		"http.healthz_path":     "/healthz",
		"http.readyz_path":      "/readyz",
	})
}

// Load reads defaults, the optional YAML file at path and STREAM_CONNECTOR_*
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := configloader.Load(path, EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	cfg.Telemetry.ServiceName = cfg.ServiceName
	cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
	return &cfg, nil
}

// Validate checks cross-field constraints. Component-level defaults are
// applied later by the components themselves.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	if _, _, err := c.Stream.Target(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if c.Stream.CommandTimeout <= 0 {
		return fmt.Errorf("stream.command_timeout must be > 0")
	}
	if err := c.Stream.Transport.Validate(); err != nil {
		return fmt.Errorf("stream.transport: %w", err)
	}

	if err := c.Reconnect.Validate(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
		switch strings.ToLower(c.Kafka.RequiredAcks) {
		case "", "all", "leader", "none":
		default:
			return fmt.Errorf("kafka.required_acks must be one of [all, leader, none]")
		}
		switch strings.ToLower(c.Kafka.Compression) {
		case "", "none", "gzip", "snappy", "lz4", "zstd":
		default:
			return fmt.Errorf("kafka.compression must be one of [none, gzip, snappy, lz4, zstd]")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be >= 0")
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.otel_endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SamplerRatio < 0 || c.Telemetry.SamplerRatio > 1 {
		return fmt.Errorf("telemetry.sampler_ratio must be between 0 and 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	durations := map[string]time.Duration{
		"http.read_timeout":     c.HTTP.ReadTimeout,
		"http.write_timeout":    c.HTTP.WriteTimeout,
		"http.idle_timeout":     c.HTTP.IdleTimeout,
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
	}
	for k, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0", k)
		}
	}
	return nil
}

// Target resolves the Connect target and the host it was built for.
func (s StreamConfig) Target() (string, binance.Host, error) {
	host, err := binance.ParseHost(s.Host)
	if err != nil {
		return "", "", err
	}
	r := binance.NewRoute(host)
	for _, name := range s.Streams {
		r.Stream(name)
	}
	target, err := r.Build()
	if err != nil {
		return "", "", err
	}
	return target, host, nil
}
