package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/daywise/internal/models"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all configuration for daywise
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Generation GenerationConfig
	Templates  TemplatesConfig
	Cleanup    CleanupConfig
	Log        LogConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// StorageConfig selects the roadmap repository
type StorageConfig struct {
	Backend string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN           string
	MaxOpenConns  int
	MigrationsDir string // empty uses the embedded migrations
}

// SQLiteConfig holds SQLite configuration
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// LLMConfig holds Gemini configuration
type LLMConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	MaxConcurrent   int
	MaxWait         time.Duration
}

// GenerationConfig bounds generation requests
type GenerationConfig struct {
	MaxTargetDays int
}

// TemplatesConfig holds prompt template configuration
type TemplatesConfig struct {
	Dir    string
	Active string
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig holds static API clients. No clients disables auth.
type AuthConfig struct {
	Clients []*models.ApiClient
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	clients, err := parseAPIKeys(getEnv("API_KEYS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid API_KEYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite)),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MaxOpenConns:  getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MigrationsDir: getEnv("DATABASE_MIGRATIONS_DIR", ""),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "./data/daywise.db"),
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "daywise:"),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			Model:           getEnv("GEMINI_MODEL", "gemini-3-pro-preview"),
			BaseURL:         getEnv("GEMINI_BASE_URL", ""),
			Temperature:     getEnvAsFloat("GEMINI_TEMPERATURE", 0.7),
			MaxOutputTokens: getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 0),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 3*time.Minute),
			MaxConcurrent:   getEnvAsInt("LLM_MAX_CONCURRENT", 2),
			MaxWait:         getEnvAsDuration("LLM_MAX_WAIT", 30*time.Second),
		},
		Generation: GenerationConfig{
			MaxTargetDays: getEnvAsInt("MAX_TARGET_DAYS", 90),
		},
		Templates: TemplatesConfig{
			Dir:    getEnv("TEMPLATES_DIR", "./templates"),
			Active: getEnv("PROMPT_TEMPLATE", "default"),
		},
		Cleanup: CleanupConfig{
			Interval:   getEnvAsDuration("CLEANUP_INTERVAL", 30*time.Second),
			StaleAfter: getEnvAsDuration("GENERATION_STALE_AFTER", 10*time.Minute),
		},
		Log: LogConfig{
			Level:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format:     strings.ToLower(getEnv("LOG_FORMAT", "json")),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Auth: AuthConfig{
			Clients: clients,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLite path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the postgres backend")
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.LLM.MaxConcurrent < 1 {
		return fmt.Errorf("LLM max concurrency must be at least 1, got %d", c.LLM.MaxConcurrent)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("invalid gemini temperature: %v", c.LLM.Temperature)
	}
	if c.Generation.MaxTargetDays < 1 {
		return fmt.Errorf("max target days must be positive, got %d", c.Generation.MaxTargetDays)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}

	return nil
}

// RequireLLM checks the settings needed to call the model
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// Address returns the HTTP listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parseAPIKeys parses "name:key[:perm|perm],..." entries.
// Entries without permissions get full access.
func parseAPIKeys(raw string) ([]*models.ApiClient, error) {
	var clients []*models.ApiClient
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("entry %q must look like name:key[:permissions]", entry)
		}
		if seen[parts[1]] {
			return nil, fmt.Errorf("duplicate key for client %q", parts[0])
		}
		seen[parts[1]] = true

		perms := []string{models.PermissionAll}
		if len(parts) == 3 && parts[2] != "" {
			perms = strings.Split(parts[2], "|")
		}

		clients = append(clients, &models.ApiClient{
			Name:        parts[0],
			ApiKey:      parts[1],
			Permissions: perms,
		})
	}

	return clients, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
