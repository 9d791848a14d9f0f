// Package config loads server settings from the environment and an optional
// config file. Environment variables win over the file; keys map to
// variables by upper-casing and replacing dots with underscores, so
// tariff.unknown_mfn_rate is read from TARIFF_UNKNOWN_MFN_RATE.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the server needs at startup.
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Search      SearchConfig
	Tariff      TariffConfig
	Screening   ScreeningConfig
	Audit       AuditConfig
	AdminToken  string
}

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// PostgresConfig configures the ledger, organization and audit outbox
// database. An empty DSN selects the in-memory stores.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ApplyMigrations bool
}

// RedisConfig configures the search result cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the ledger audit stream. No brokers means
// audit events are only logged and stored.
type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	ClientID          string
	TopicPartitions   int32
	ReplicationFactor int16
	RelayInterval     time.Duration
	RelayBatchSize    int
}

type SearchConfig struct {
	// Index is "memory" or "postgres".
	Index       string
	DatasetPath string
	CallTimeout time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	CacheTTL    time.Duration
	ExportChunk int
}

type TariffConfig struct {
	DatasetPath    string
	UnknownMFNRate decimal.Decimal
}

type ScreeningConfig struct {
	SanctionsURL    string
	PEPURL          string
	AdverseMediaURL string
	APIKey          string
	Timeout         time.Duration
	RateLimit       float64
	RateBurst       int
	MaxAttempts     int
	RetryBackoff    time.Duration
	Concurrency     int
	// StaticFallback answers unconfigured kinds from an empty local list.
	// Local development only; without it those kinds are unavailable.
	StaticFallback bool
}

type AuditConfig struct {
	AsyncBuffer int
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasPostgres reports whether a database is configured.
func (c *Config) HasPostgres() bool {
	return c.Postgres.DSN != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.apply_migrations", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.audit_topic", "tradegraph.audit")
	v.SetDefault("kafka.client_id", "tradegraph")
	v.SetDefault("kafka.topic_partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.relay_interval", time.Second)
	v.SetDefault("kafka.relay_batch_size", 100)

	v.SetDefault("search.index", "memory")
	v.SetDefault("search.dataset_path", "")
	v.SetDefault("search.call_timeout", 5*time.Second)
	v.SetDefault("search.max_attempts", 3)
	v.SetDefault("search.base_backoff", 100*time.Millisecond)
	v.SetDefault("search.cache_ttl", 5*time.Minute)
	v.SetDefault("search.export_chunk", 500)

	v.SetDefault("tariff.dataset_path", "")
	v.SetDefault("tariff.unknown_mfn_rate", "0")

	v.SetDefault("screening.sanctions_url", "")
	v.SetDefault("screening.pep_url", "")
	v.SetDefault("screening.adverse_media_url", "")
	v.SetDefault("screening.api_key", "")
	v.SetDefault("screening.timeout", 10*time.Second)
	v.SetDefault("screening.rate_limit", 10.0)
	v.SetDefault("screening.rate_burst", 20)
	v.SetDefault("screening.max_attempts", 2)
	v.SetDefault("screening.retry_backoff", 200*time.Millisecond)
	v.SetDefault("screening.concurrency", 8)
	v.SetDefault("screening.static_fallback", false)

	v.SetDefault("audit.async_buffer", 0)

	v.SetDefault("admin.token", "")
}

// Load reads configuration. path may be empty; when set, the file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	mfn, err := decimal.NewFromString(strings.TrimSpace(v.GetString("tariff.unknown_mfn_rate")))
	if err != nil {
		return nil, fmt.Errorf("invalid TARIFF_UNKNOWN_MFN_RATE: %w", err)
	}

	cfg := &Config{
		Environment: v.GetString("environment"),
		Server: ServerConfig{
			Addr:              v.GetString("server.addr"),
			ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
			WriteTimeout:      v.GetDuration("server.write_timeout"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:    v.GetDuration("server.request_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Postgres: PostgresConfig{
			DSN:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ApplyMigrations: v.GetBool("database.apply_migrations"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(v.GetString("kafka.brokers")),
			AuditTopic:        v.GetString("kafka.audit_topic"),
			ClientID:          v.GetString("kafka.client_id"),
			TopicPartitions:   v.GetInt32("kafka.topic_partitions"),
			ReplicationFactor: int16(v.GetInt("kafka.replication_factor")),
			RelayInterval:     v.GetDuration("kafka.relay_interval"),
			RelayBatchSize:    v.GetInt("kafka.relay_batch_size"),
		},
		Search: SearchConfig{
			Index:       strings.ToLower(v.GetString("search.index")),
			DatasetPath: v.GetString("search.dataset_path"),
			CallTimeout: v.GetDuration("search.call_timeout"),
			MaxAttempts: v.GetInt("search.max_attempts"),
			BaseBackoff: v.GetDuration("search.base_backoff"),
			CacheTTL:    v.GetDuration("search.cache_ttl"),
			ExportChunk: v.GetInt("search.export_chunk"),
		},
		Tariff: TariffConfig{
			DatasetPath:    v.GetString("tariff.dataset_path"),
			UnknownMFNRate: mfn,
		},
		Screening: ScreeningConfig{
			SanctionsURL:    v.GetString("screening.sanctions_url"),
			PEPURL:          v.GetString("screening.pep_url"),
			AdverseMediaURL: v.GetString("screening.adverse_media_url"),
			APIKey:          v.GetString("screening.api_key"),
			Timeout:         v.GetDuration("screening.timeout"),
			RateLimit:       v.GetFloat64("screening.rate_limit"),
			RateBurst:       v.GetInt("screening.rate_burst"),
			MaxAttempts:     v.GetInt("screening.max_attempts"),
			RetryBackoff:    v.GetDuration("screening.retry_backoff"),
			Concurrency:     v.GetInt("screening.concurrency"),
			StaticFallback:  v.GetBool("screening.static_fallback"),
		},
		Audit: AuditConfig{
			AsyncBuffer: v.GetInt("audit.async_buffer"),
		},
		AdminToken: v.GetString("admin.token"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("SERVER_ADDR must not be empty"))
	}
	switch c.Search.Index {
	case "memory":
	case "postgres":
		if !c.HasPostgres() {
			errs = append(errs, errors.New("SEARCH_INDEX=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("SEARCH_INDEX must be memory or postgres, got %q", c.Search.Index))
	}
	if c.Tariff.UnknownMFNRate.IsNegative() {
		errs = append(errs, errors.New("TARIFF_UNKNOWN_MFN_RATE must not be negative"))
	}
	if c.Search.MaxAttempts < 1 {
		errs = append(errs, errors.New("SEARCH_MAX_ATTEMPTS must be at least 1"))
	}
	if c.IsProduction() && c.AdminToken == "" {
		errs = append(errs, errors.New("ADMIN_TOKEN is required in production"))
	}
	if c.IsProduction() && c.Screening.StaticFallback {
		errs = append(errs, errors.New("SCREENING_STATIC_FALLBACK is not allowed in production"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
