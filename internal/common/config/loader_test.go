// internal/common/config/loader_test.go
package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_POSTGRES_HOST", "localhost")
	t.Setenv("DATABASE_POSTGRES_DATABASE", "pos_insights")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, float32(0.1), cfg.OpenAI.SQLTemperature)
	assert.Equal(t, float32(0.3), cfg.OpenAI.InsightTemperature)
	assert.Equal(t, 200, cfg.OpenAI.InsightMaxTokens)
	assert.Equal(t, 2000, cfg.AIQuery.ExecutionTimeout)
	assert.Equal(t, 900, cfg.AIQuery.CacheTTL)
	assert.Equal(t, 1024, cfg.AIQuery.CacheMaxEntries)
	assert.Equal(t, 5, cfg.AIQuery.RateLimit)
	assert.Equal(t, 60, cfg.AIQuery.RateLimitWindow)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_POSTGRES_HOST", "db.internal")
	t.Setenv("DATABASE_POSTGRES_DATABASE", "pos_insights")
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("AI_QUERY_RATE_LIMIT", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 10, cfg.AIQuery.RateLimit)
}

func TestLoadRequiresPostgresHost(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_POSTGRES_HOST", "")
	t.Setenv("DATABASE_POSTGRES_DATABASE", "pos_insights")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	dsn := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "pos_insights",
		SSLMode:  "disable",
	}.GetDSN()

	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=pos_insights sslmode=disable", dsn)
}
