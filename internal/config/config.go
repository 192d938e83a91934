package config

import (
	"time"

	pkgconfig "github.com/ManikLakhanpal/Tube-Pay/pkg/config"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/pubsub"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/tracing"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	PubSub    pubsub.Config   `mapstructure:"pubsub"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"` // CORS, empty allows any origin
	Gzip            bool
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	TimeZone        string `mapstructure:"timezone"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type CacheConfig struct {
	Prefix    string
	OpTimeout time.Duration `mapstructure:"op_timeout"`
	ScanCount int64         `mapstructure:"scan_count"`
	TTL       CacheTTLConfig
	Breaker   BreakerConfig
}

type CacheTTLConfig struct {
	LiveStreams    time.Duration `mapstructure:"live_streams"`
	StreamDetails  time.Duration `mapstructure:"stream_details"`
	UserProfile    time.Duration `mapstructure:"user_profile"`
	PaymentDetails time.Duration `mapstructure:"payment_details"`
	PaymentPages   time.Duration `mapstructure:"payment_pages"`
	PaymentStats   time.Duration `mapstructure:"payment_stats"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type RateLimitConfig struct {
	CreateOrderLimit  int64         `mapstructure:"create_order_limit"`
	CreateOrderWindow time.Duration `mapstructure:"create_order_window"`
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// GatewayConfig holds the payment gateway merchant credentials.
type GatewayConfig struct {
	KeySecret string `mapstructure:"key_secret"` // signs settled orders
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(pkgconfig.GetEnv("DOTENV_PATH", ".env")); err != nil {
		return nil, err
	}

	v, err := pkgconfig.Load(pkgconfig.GetEnv("CONFIG_PATH", "./config"), "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "tubepay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.file_path", "./data/tubepay.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.op_timeout", "500ms")
	v.SetDefault("cache.scan_count", 100)
	v.SetDefault("cache.ttl.live_streams", "30s")
	v.SetDefault("cache.ttl.stream_details", "5m")
	v.SetDefault("cache.ttl.user_profile", "10m")
	v.SetDefault("cache.ttl.payment_details", "5m")
	v.SetDefault("cache.ttl.payment_pages", "3m")
	v.SetDefault("cache.ttl.payment_stats", "1m")
	v.SetDefault("cache.breaker.consecutive_failures", 5)
	v.SetDefault("cache.breaker.open_timeout", "10s")
	v.SetDefault("rate_limit.create_order_limit", 10)
	v.SetDefault("rate_limit.create_order_window", "60s")
	v.SetDefault("jwt.issuer", "tube-pay")
	v.SetDefault("jwt.access_ttl", "24h")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("server.gzip", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "tube-pay")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("log.level", "info")

	// Bind environment variables
	err = pkgconfig.BindEnvs(v, map[string]string{
		"server.port":          "PORT",
		"database.driver":      "DB_DRIVER",
		"database.host":        "DB_HOST",
		"database.port":        "DB_PORT",
		"database.user":        "DB_USER",
		"database.password":    "DB_PASSWORD",
		"database.dbname":      "DB_NAME",
		"database.sslmode":     "DB_SSLMODE",
		"database.file_path":   "DB_FILE_PATH",
		"redis.address":        "REDIS_ADDRESS",
		"redis.password":       "REDIS_PASSWORD",
		"redis.db":             "REDIS_DB",
		"cache.prefix":         "CACHE_PREFIX",
		"jwt.secret":           "JWT_SECRET",
		"gateway.key_secret":   "GATEWAY_KEY_SECRET",
		"pubsub.driver":        "PUBSUB_DRIVER",
		"pubsub.redis.address": "PUBSUB_REDIS_ADDRESS",
		"pubsub.kafka.brokers": "KAFKA_BROKERS",
		"tracing.enabled":      "OTEL_ENABLED",
		"tracing.endpoint":     "OTEL_EXPORTER_OTLP_ENDPOINT",
		"log.level":            "LOG_LEVEL",
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
