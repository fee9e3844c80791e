// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like OPENAI_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Register every key so env-only overrides survive Unmarshal.
	setViperDefaults()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func setViperDefaults() {
	viper.SetDefault("app.name", "pos-insights")
	viper.SetDefault("app.version", "")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", 15000)
	viper.SetDefault("server.write_timeout", 30000)
	viper.SetDefault("server.shutdown_timeout", 10000)
	viper.SetDefault("database.postgres.host", "")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.database", "")
	viper.SetDefault("database.postgres.user", "")
	viper.SetDefault("database.postgres.password", "")
	viper.SetDefault("database.postgres.max_connections", 10)
	viper.SetDefault("database.postgres.max_idle", 5)
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.redis.enabled", false)
	viper.SetDefault("database.redis.address", "localhost:6379")
	viper.SetDefault("database.redis.password", "")
	viper.SetDefault("database.redis.db", 0)
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.generation_timeout", 15000)
	viper.SetDefault("openai.insight_timeout", 10000)
	viper.SetDefault("openai.sql_temperature", 0.1)
	viper.SetDefault("openai.insight_temperature", 0.3)
	viper.SetDefault("openai.insight_max_tokens", 200)
	viper.SetDefault("ai_query.execution_timeout", 2000)
	viper.SetDefault("ai_query.cache_ttl", 900)
	viper.SetDefault("ai_query.cache_max_entries", 1024)
	viper.SetDefault("ai_query.rate_limit", 5)
	viper.SetDefault("ai_query.rate_limit_window", 60)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos-insights"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.OpenAI.GenerationTimeout == 0 {
		cfg.OpenAI.GenerationTimeout = 15000
	}
	if cfg.OpenAI.InsightTimeout == 0 {
		cfg.OpenAI.InsightTimeout = 10000
	}
	if cfg.OpenAI.SQLTemperature == 0 {
		cfg.OpenAI.SQLTemperature = 0.1
	}
	if cfg.OpenAI.InsightTemperature == 0 {
		cfg.OpenAI.InsightTemperature = 0.3
	}
	if cfg.OpenAI.InsightMaxTokens == 0 {
		cfg.OpenAI.InsightMaxTokens = 200
	}
	if cfg.AIQuery.ExecutionTimeout == 0 {
		cfg.AIQuery.ExecutionTimeout = 2000
	}
	if cfg.AIQuery.CacheTTL == 0 {
		cfg.AIQuery.CacheTTL = 900 // 15 minutes
	}
	if cfg.AIQuery.CacheMaxEntries == 0 {
		cfg.AIQuery.CacheMaxEntries = 1024
	}
	if cfg.AIQuery.RateLimit == 0 {
		cfg.AIQuery.RateLimit = 5
	}
	if cfg.AIQuery.RateLimitWindow == 0 {
		cfg.AIQuery.RateLimitWindow = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.OpenAI.APIKey == "" && cfg.App.Environment != "development" {
		return fmt.Errorf("openai.api_key is required outside development")
	}
	return nil
}
