package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, ":8083", cfg.Server.GRPCPort)
	assert.Equal(t, ":8080", cfg.Server.HTTPPort)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "data/inventory.json", cfg.Storage.FilePath)
	assert.Equal(t, "omnipos:", cfg.Redis.Prefix)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory/snapshot.json", cfg.S3.Key)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_PREFIX", "kitchen:")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("S3_BUCKET", "madison-inventory")

	cfg := LoadEnv()

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "kitchen:", cfg.Redis.Prefix)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, "madison-inventory", cfg.S3.Bucket)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=inv sslmode=disable", p.DSN())
}
