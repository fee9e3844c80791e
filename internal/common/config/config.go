// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	AIQuery  AIQueryConfig  `mapstructure:"ai_query"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Services ---

// OpenAIConfig holds settings for the text generation service.
type OpenAIConfig struct {
	APIKey             string  `mapstructure:"api_key"`
	BaseURL            string  `mapstructure:"base_url"` // optional override for compatible gateways
	Model              string  `mapstructure:"model"`
	GenerationTimeout  int     `mapstructure:"generation_timeout"` // milliseconds
	InsightTimeout     int     `mapstructure:"insight_timeout"`    // milliseconds
	SQLTemperature     float32 `mapstructure:"sql_temperature"`
	InsightTemperature float32 `mapstructure:"insight_temperature"`
	InsightMaxTokens   int     `mapstructure:"insight_max_tokens"`
}

// --- AI Query Pipeline ---

// AIQueryConfig holds the tunables of the query pipeline.
type AIQueryConfig struct {
	ExecutionTimeout int `mapstructure:"execution_timeout"` // milliseconds
	CacheTTL         int `mapstructure:"cache_ttl"`         // seconds
	CacheMaxEntries  int `mapstructure:"cache_max_entries"`
	RateLimit        int `mapstructure:"rate_limit"`        // requests per window
	RateLimitWindow  int `mapstructure:"rate_limit_window"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
