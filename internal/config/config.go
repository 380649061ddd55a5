package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProviderConfig holds the ticket source HTTP settings
type ProviderConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

// InterpreterConfig holds the natural-language interpretation service
// settings. The interpreter is best-effort: when APIKey is empty the
// engine runs on deterministic local rules only.
type InterpreterConfig struct {
	APIKey  string
	BaseURL string        `validate:"omitempty,url"`
	Model   string        `validate:"required"`
	Timeout time.Duration `validate:"gt=0"`
}

// Enabled reports whether the interpreter should be called at all
func (c InterpreterConfig) Enabled() bool {
	return c.APIKey != ""
}

// SessionConfig holds the conversational result-store settings
type SessionConfig struct {
	PageSize int           `validate:"gt=0"`
	IdleTTL  time.Duration `validate:"gt=0"`
}

// RedisConfig holds the segment cache settings. Caching is optional;
// when Enabled is false segment fetches always hit the provider.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int `validate:"gt=0"`
	Password string
	DB       int
	TTL      time.Duration `validate:"gt=0"`
}

// Addr returns the host:port address of the Redis server
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the Postgres settings for the curated hub table.
// The database is optional; when Enabled is false the built-in hub
// table is used directly.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int `validate:"gt=0"`
	Database string
	User     string
	Password string
	SSLMode  string
}

// ConnString returns a pgx connection string
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
	)
}

// Config is the full application configuration, injected explicitly
// into the components that need it
type Config struct {
	APIPort     string `validate:"required"`
	Provider    ProviderConfig
	Interpreter InterpreterConfig
	Session     SessionConfig
	Redis       RedisConfig
	Database    DatabaseConfig
}

// LoadFromEnv builds the configuration from environment variables and
// validates it. Missing variables fall back to defaults.
func LoadFromEnv() (*Config, error) {
	providerTimeout, _ := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "15s"))
	interpTimeout, _ := time.ParseDuration(getEnv("INTERPRETER_TIMEOUT", "30s"))
	pageSize, _ := strconv.Atoi(getEnv("SESSION_PAGE_SIZE", "10"))
	idleTTL, _ := time.ParseDuration(getEnv("SESSION_IDLE_TTL", "10m"))
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, _ := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	cfg := &Config{
		APIPort: getEnv("API_PORT", "8080"),
		Provider: ProviderConfig{
			BaseURL: getEnv("PROVIDER_BASE_URL", "https://api.pearktrue.cn/api/highspeedticket"),
			Timeout: providerTimeout,
		},
		Interpreter: InterpreterConfig{
			APIKey:  getEnv("INTERPRETER_API_KEY", ""),
			BaseURL: getEnv("INTERPRETER_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("INTERPRETER_MODEL", "gpt-3.5-turbo"),
			Timeout: interpTimeout,
		},
		Session: SessionConfig{
			PageSize: pageSize,
			IdleTTL:  idleTTL,
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		Database: DatabaseConfig{
			Enabled:  getEnv("DB_ENABLED", "false") == "true",
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Database: getEnv("DB_NAME", "railquery"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a configuration against its struct tags
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
