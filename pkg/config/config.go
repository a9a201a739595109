// Package config loads application configuration from a YAML file with
// environment-variable overrides. Every optional backend (Redis, Postgres,
// Kafka) is disabled by default so the service runs standalone.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Search    SearchConfig    `yaml:"search"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Insights  InsightsConfig  `yaml:"insights"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// SearchConfig controls result counts and snippet shape.
type SearchConfig struct {
	DefaultLimit  int `yaml:"defaultLimit"`
	MaxLimit      int `yaml:"maxLimit"`
	NumSnippets   int `yaml:"numSnippets"`
	SnippetLength int `yaml:"snippetLength"`
}

// IngestionConfig bounds uploads and extraction.
type IngestionConfig struct {
	MaxFileSize    int64         `yaml:"maxFileSize"`
	MaxFiles       int           `yaml:"maxFiles"`
	ExtractTimeout time.Duration `yaml:"extractTimeout"`
}

// InsightsConfig selects how canned phrases are chosen.
type InsightsConfig struct {
	Picker        string `yaml:"picker"`
	Seed          uint64 `yaml:"seed"`
	SummaryLength int    `yaml:"summaryLength"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// AnalyticsConfig controls event buffering and snapshot persistence.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	TopN             int           `yaml:"topN"`
}

// RateLimitConfig sets the per-client request budget. Clients are keyed by
// peer address; X-Forwarded-For is only honoured when the peer is listed in
// TrustedProxies (addresses or CIDR prefixes).
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
	TrustedProxies    []string      `yaml:"trustedProxies"`
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (r RateLimitConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(r.TrustedProxies))
	for _, entry := range r.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("rateLimit.trustedProxies: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("rateLimit.trustedProxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit <= 0 {
		problems = append(problems, "search limits must be positive")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		problems = append(problems, "search.defaultLimit exceeds search.maxLimit")
	}
	if c.Search.SnippetLength <= 0 {
		problems = append(problems, "search.snippetLength must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers required when kafka is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0) {
		problems = append(problems, "rateLimit requires positive requestsPerWindow and window")
	}
	if _, err := c.RateLimit.TrustedPrefixes(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			MaxLimit:      100,
			NumSnippets:   3,
			SnippetLength: 200,
		},
		Ingestion: IngestionConfig{
			MaxFileSize:    20 << 20,
			MaxFiles:       20,
			ExtractTimeout: 20 * time.Second,
		},
		Insights: InsightsConfig{
			Picker:        "first",
			SummaryLength: 200,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docquery",
			User:            "docquery",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docquery-analytics",
			Topic:         "docquery-events",
		},
		Analytics: AnalyticsConfig{
			BufferSize:       1024,
			FlushInterval:    time.Second,
			SnapshotInterval: time.Minute,
			TopN:             10,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 120,
			Window:            time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DQ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setInt("DQ_SERVER_PORT", &cfg.Server.Port)
	setInt("DQ_SEARCH_DEFAULT_LIMIT", &cfg.Search.DefaultLimit)
	setInt("DQ_SEARCH_SNIPPET_LENGTH", &cfg.Search.SnippetLength)
	if v := os.Getenv("DQ_INGESTION_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ingestion.MaxFileSize = n
		}
	}
	setString("DQ_INSIGHTS_PICKER", &cfg.Insights.Picker)
	if v := os.Getenv("DQ_INSIGHTS_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Insights.Seed = n
		}
	}

	setBool("DQ_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("DQ_REDIS_ADDR", &cfg.Redis.Addr)
	setString("DQ_REDIS_PASSWORD", &cfg.Redis.Password)

	setBool("DQ_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	setString("DQ_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("DQ_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("DQ_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("DQ_POSTGRES_USER", &cfg.Postgres.User)
	setString("DQ_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("DQ_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	setBool("DQ_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("DQ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("DQ_KAFKA_TOPIC", &cfg.Kafka.Topic)

	setBool("DQ_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("DQ_RATE_LIMIT_REQUESTS", &cfg.RateLimit.RequestsPerWindow)
	if v := os.Getenv("DQ_RATE_LIMIT_TRUSTED_PROXIES"); v != "" {
		cfg.RateLimit.TrustedProxies = strings.Split(v, ",")
	}

	setString("DQ_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("DQ_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("DQ_TRACING_ENABLED", &cfg.Tracing.Enabled)
	setBool("DQ_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("DQ_METRICS_PORT", &cfg.Metrics.Port)
}
