package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultSymbols are the tickers the mutator tracks when none are configured.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA",
	"META", "NVDA", "PYPL", "NFLX", "ADBE",
}

// Config holds all configuration for both functions
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Store    StoreConfig    `mapstructure:"store"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Mutator  MutatorConfig  `mapstructure:"mutator"`
	Reader   ReaderConfig   `mapstructure:"reader"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // "json" or "console"
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type DynamoDBConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // set for dynamodb-local
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// CacheConfig identifies the API Gateway stage whose cache the mutator flushes.
// Both fields empty means "not configured", not an error.
type CacheConfig struct {
	APIID     string `mapstructure:"api_id"`
	StageName string `mapstructure:"stage_name"`
}

type MutatorConfig struct {
	Symbols  []string `mapstructure:"symbols"`
	Schedule string   `mapstructure:"schedule"`
}

type ReaderConfig struct {
	DiscoveryLimit int           `mapstructure:"discovery_limit"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	CacheMaxAge    time.Duration `mapstructure:"cache_max_age"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "store.backend" -> STORE_BACKEND
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "store.backend")
	bindEnv(v, "dynamodb.table", "dynamodb.region", "dynamodb.endpoint")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "postgres.url", "postgres.max_conns")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic")
	bindEnv(v, "mutator.symbols", "mutator.schedule")
	bindEnv(v, "reader.discovery_limit", "reader.history_limit", "reader.cache_max_age")

	// The cache scope keeps the names the deployment template exports.
	if err := v.BindEnv("cache.api_id", "API_ID"); err != nil {
		log.Printf("Could not bind env var API_ID: %v", err)
	}
	if err := v.BindEnv("cache.stage_name", "STAGE_NAME"); err != nil {
		log.Printf("Could not bind env var STAGE_NAME: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("store.backend", BackendDynamoDB)

	v.SetDefault("dynamodb.table", "StockTable")
	v.SetDefault("dynamodb.region", "")
	v.SetDefault("dynamodb.endpoint", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.url", "postgres://localhost:5432/stocks")
	v.SetDefault("postgres.max_conns", 4)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "stock_prices")

	v.SetDefault("cache.api_id", "")
	v.SetDefault("cache.stage_name", "")

	v.SetDefault("mutator.symbols", DefaultSymbols)
	v.SetDefault("mutator.schedule", "@every 1m")

	v.SetDefault("reader.discovery_limit", 100)
	v.SetDefault("reader.history_limit", 100)
	v.SetDefault("reader.cache_max_age", 5*time.Minute)
}

// Validate rejects settings neither function can start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendDynamoDB, BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if len(c.Mutator.Symbols) == 0 {
		return fmt.Errorf("mutator symbols cannot be empty")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}

	if c.Reader.DiscoveryLimit <= 0 || c.Reader.HistoryLimit <= 0 {
		return fmt.Errorf("reader limits must be positive")
	}

	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
