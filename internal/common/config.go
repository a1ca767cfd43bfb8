package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Chunking ChunkingConfig
	Redis    RedisConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" or "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr    string
	MaxUploadMB int
}

// ExtractConfig holds text extraction settings
type ExtractConfig struct {
	Pdftotext string
}

// LLMConfig holds the generative backend knobs.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChunkingConfig controls the window sizes of plan extraction.
type ChunkingConfig struct {
	MaxChars int
	Overlap  int
}

// RedisConfig enables cross-process catalog invalidation when Addr is set.
type RedisConfig struct {
	Addr    string
	Channel string
}

// LLM defaults, shared with the llm package.
const (
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLLMBaseURL     = "https://api.openai.com/v1"
	DefaultLLMTemperature = float32(0.2)
	DefaultLLMMaxTokens   = 700
	DefaultLLMTimeout     = 20 * time.Second
)

// LoadConfig loads configuration from environment variables. Invalid numeric values
// are reported on logger and replaced by their defaults.
func LoadConfig(logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	env := envReader{log: logger}
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(env.str("DB_DRIVER", "postgres")),
			DSN:              env.str("DB_URL", ""),
			MaxConns:         env.int32("DB_MAX_CONNS", 20),
			MinConns:         env.int32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  env.duration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  env.duration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      env.duration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: env.duration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:    env.str("HTTP_ADDR", ":8080"),
			MaxUploadMB: env.int("MAX_UPLOAD_MB", 25),
		},
		Extract: ExtractConfig{
			Pdftotext: env.str("PDFTOTEXT_BIN", "pdftotext"),
		},
		LLM: LoadLLMConfig(logger),
		Chunking: ChunkingConfig{
			MaxChars: env.int("PLAN_CHUNK_SIZE", 6000),
			Overlap:  env.int("PLAN_CHUNK_OVERLAP", 400),
		},
		Redis: RedisConfig{
			Addr:    env.str("REDIS_ADDR", ""),
			Channel: env.str("REDIS_CHANNEL", "curriculum.catalog"),
		},
	}
}

// LoadLLMConfig reads only the generative backend knobs.
func LoadLLMConfig(logger *slog.Logger) LLMConfig {
	if logger == nil {
		logger = slog.Default()
	}
	env := envReader{log: logger}
	apiKey := env.str("AI_API_KEY", "")
	if apiKey == "" {
		apiKey = env.str("OPENAI_API_KEY", "")
	}
	return LLMConfig{
		Provider:    strings.ToLower(env.str("AI_PROVIDER", "")),
		Model:       env.str("AI_MODEL", DefaultLLMModel),
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(env.str("AI_API_BASE", DefaultLLMBaseURL), "/"),
		Temperature: env.float32("AI_TEMPERATURE", DefaultLLMTemperature),
		MaxTokens:   env.int("AI_MAX_TOKENS", DefaultLLMMaxTokens),
		Timeout:     env.seconds("AI_TIMEOUT", DefaultLLMTimeout),
	}
}

// envReader wraps the getEnv helpers so parse failures are logged once, with the key.
type envReader struct {
	log *slog.Logger
}

func (e envReader) invalid(key, value string, def any) {
	e.log.Warn("config.invalid_value", "key", key, "value", value, "default", def)
}

func (e envReader) str(key, defaultValue string) string {
	return getEnv(key, defaultValue)
}

func (e envReader) int(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		e.invalid(key, value, defaultValue)
		return defaultValue
	}
	return intVal
}

func (e envReader) int32(key string, defaultValue int32) int32 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		e.invalid(key, value, defaultValue)
		return defaultValue
	}
	return int32(intVal)
}

func (e envReader) float32(key string, defaultValue float32) float32 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 32)
	if err != nil {
		e.invalid(key, value, defaultValue)
		return defaultValue
	}
	return float32(floatVal)
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.invalid(key, value, defaultValue)
		return defaultValue
	}
	return d
}

// seconds accepts either a bare number of seconds ("20", "2.5") or a Go duration ("20s").
func (e envReader) seconds(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
		return time.Duration(f * float64(time.Second))
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	e.invalid(key, value, defaultValue)
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Chunking.MaxChars <= 0 {
		return NewAppError("CONFIG_ERROR", "PLAN_CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Chunking.Overlap < 0 {
		return NewAppError("CONFIG_ERROR", "PLAN_CHUNK_OVERLAP must not be negative", ErrInvalidInput)
	}
	return nil
}
