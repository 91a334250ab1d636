package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	JWT         JWTConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	RateLimiter RateLimiterConfig
	Bulkhead    BulkheadConfig
	Breaker     CircuitBreakerConfig
	Pricing     PricingConfig
	Drone       DroneConfig
	Dispatcher  DispatcherConfig
	Kafka       KafkaConfig
	Telemetry   TelemetryConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	GinMode         string        `env:"GIN_MODE" envDefault:"release"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"memory"`
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET" envDefault:"default-secret-change-me"`
}

type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL"` // takes precedence if set
	Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER" envDefault:"fleet_admin"`
	Password        string        `env:"POSTGRES_PASSWORD" envDefault:"secure_password"`
	DB              string        `env:"POSTGRES_DB" envDefault:"drone_fleet"`
	SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"POSTGRES_CONN_MAX_IDLE_TIME" envDefault:"1m"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"` // takes precedence if set
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
}

type RateLimiterConfig struct {
	MaxRequests   int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	WindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
}

type BulkheadConfig struct {
	TelemetryPool int `env:"BULKHEAD_TELEMETRY_POOL" envDefault:"100"`
	MutationPool  int `env:"BULKHEAD_MUTATION_POOL" envDefault:"50"`
	AdminPool     int `env:"BULKHEAD_ADMIN_POOL" envDefault:"20"`
}

type CircuitBreakerConfig struct {
	Threshold int           `env:"CIRCUIT_BREAKER_THRESHOLD" envDefault:"5"`
	Cooldown  time.Duration `env:"CIRCUIT_BREAKER_COOLDOWN" envDefault:"30s"`
}

type PricingConfig struct {
	BasePrice   float64 `env:"PRICING_BASE" envDefault:"15.99"`
	PerKgRate   float64 `env:"PRICING_PER_KG" envDefault:"2.50"`
	DistanceFee float64 `env:"PRICING_DISTANCE_FEE" envDefault:"5.00"`
}

type DroneConfig struct {
	LocationCacheTTLSec int `env:"DRONE_LOCATION_CACHE_TTL_SECONDS" envDefault:"60"`
	IdempotencyTTLSec   int `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"300"`
}

type DispatcherConfig struct {
	Enabled  bool   `env:"AUTO_DISPATCH_ENABLED" envDefault:"false"`
	Schedule string `env:"AUTO_DISPATCH_SCHEDULE" envDefault:"@every 30s"`
	Operator string `env:"AUTO_DISPATCH_OPERATOR" envDefault:"auto-dispatch"`
	Batch    int    `env:"AUTO_DISPATCH_BATCH" envDefault:"20"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"order-events"`
}

type TelemetryConfig struct {
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"drone-fleet"`
	Environment  string `env:"ENVIRONMENT" envDefault:"local"`
	TraceStdout  bool   `env:"OTEL_TRACES_STDOUT" envDefault:"false"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Dispatcher.Enabled && c.Dispatcher.Schedule == "" {
		return fmt.Errorf("config: AUTO_DISPATCH_SCHEDULE is required when dispatch is enabled")
	}
	return nil
}

func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
