package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-fleet/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, config.StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 15.99, cfg.Pricing.BasePrice)
	assert.Equal(t, 2.50, cfg.Pricing.PerKgRate)
	assert.Equal(t, 5.00, cfg.Pricing.DistanceFee)
	assert.False(t, cfg.Dispatcher.Enabled)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "order-events", cfg.Kafka.Topic)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AUTO_DISPATCH_ENABLED", "true")
	t.Setenv("PRICING_PER_KG", "3.25")
	t.Setenv("CIRCUIT_BREAKER_COOLDOWN", "2m")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, config.StorePostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Dispatcher.Enabled)
	assert.Equal(t, 3.25, cfg.Pricing.PerKgRate)
	assert.Equal(t, 2*time.Minute, cfg.Breaker.Cooldown)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := config.Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestPostgresDSN(t *testing.T) {
	p := config.PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DB: "fleet", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fleet sslmode=disable", p.DSN())

	p.URL = "postgres://x"
	assert.Equal(t, "postgres://x", p.DSN())
}
