package pubsub

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Partitions int    `mapstructure:"partitions"`
}

// RedisConfig holds Redis-specific configuration. An empty Address means
// the publisher reuses the client handed to NewPublisher.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Config holds the configuration for the event bus.
type Config struct {
	Driver string      `mapstructure:"driver"` // "redis", "kafka", "none"
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver: "redis",
		Redis: RedisConfig{
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Partitions: 4,
		},
	}
}

// NewPublisher builds the publisher selected by cfg.Driver. shared is used
// by the redis driver when no dedicated address is configured.
func NewPublisher(cfg Config, shared redis.UniversalClient) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka)
	case "none":
		return NopPublisher{}, nil
	case "redis", "":
		if cfg.Redis.Address == "" {
			if shared == nil {
				return nil, fmt.Errorf("redis publisher needs an address or a shared client")
			}
			return NewRedisPubSubWithClient(shared), nil
		}
		return NewRedisPubSub(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported pubsub driver: %s", cfg.Driver)
	}
}
