package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Dispatch       DispatchConfig
	Matching       MatchingConfig
	Roster         RosterConfig
	RateLimit      RateLimitConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// BrokerConfig selects the message broker. Only kafka is implemented; the
// type field exists so a second backend can be added without a config break.
type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers       []string    `mapstructure:"brokers"`
	GroupID       string      `mapstructure:"group_id"`
	TriggerTopic  string      `mapstructure:"trigger_topic"`
	AnalysisTopic string      `mapstructure:"analysis_topic"`
	ConfigTopic   string      `mapstructure:"config_topic"`
	DLQTopic      string      `mapstructure:"dlq_topic"`
	Retry         RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DispatchConfig tunes the webhook delivery engine and trigger ingestion.
type DispatchConfig struct {
	UserAgent         string            `mapstructure:"user_agent"`
	HTTPTimeout       time.Duration     `mapstructure:"http_timeout"`
	MaxAttempts       int               `mapstructure:"max_attempts"`
	ResponseBodyLimit int               `mapstructure:"response_body_limit"`
	InternalToken     string            `mapstructure:"internal_token"`
	Filter            FilterConfig      `mapstructure:"filter"`
	Idempotency       IdempotencyConfig `mapstructure:"idempotency"`
}

type FilterConfig struct {
	Fallback FallbackConfig `mapstructure:"fallback"`
}

type FallbackConfig struct {
	OnError string `mapstructure:"on_error"` // "allow", "deny", "error" (default: "allow")
}

type IdempotencyConfig struct {
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	OnRedisError string `mapstructure:"on_redis_error"` // "allow", "reject", "fail" (default: "allow")
}

type MatchingConfig struct {
	ReviewThreshold int `mapstructure:"review_threshold"`
}

// RosterConfig selects where the matcher fetches contact rosters from and
// how they are cached.
type RosterConfig struct {
	Provider        string          `mapstructure:"provider"` // "database" or "api"
	CacheEnabled    bool            `mapstructure:"cache_enabled"`
	CacheTTLSeconds int             `mapstructure:"cache_ttl_seconds"`
	API             RosterAPIConfig `mapstructure:"api"`
}

type RosterAPIConfig struct {
	URL       string        `mapstructure:"url"` // may contain a {user_id} placeholder
	Timeout   time.Duration `mapstructure:"timeout"`
	AuthToken string        `mapstructure:"auth_token"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
