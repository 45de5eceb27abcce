package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Moderation   ModerationConfig
	AI           AIConfig
	Scan         ScanConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters. Token issuance lives in
// the identity service; this service only verifies bearer tokens.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// RateLimitConfig bounds ticket creation per user.
type RateLimitConfig struct {
	WindowHours int
	MaxTickets  int
}

// Window returns the trailing window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowHours) * time.Hour
}

// ModerationConfig tunes the content gate.
type ModerationConfig struct {
	// ConfidenceThreshold gates whether a harmful verdict is honored.
	// Verdicts below it are treated as safe.
	ConfidenceThreshold float64
	// FallbackConfidence is the fixed confidence the keyword heuristic
	// reports when it flags content.
	FallbackConfidence float64
}

// AIConfig configures the LLM classification endpoint.
type AIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// Timeout returns the per-call timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ScanConfig tunes the misuse scanner and its scheduler.
type ScanConfig struct {
	Enabled                 bool
	CadenceHours            int
	LookbackHours           int
	BatchSize               int
	BatchConcurrency        int
	VolumeThreshold         int
	DuplicateTitleThreshold int
	MinDescriptionLength    int
	ShortDescriptionCount   int
}

// Cadence returns the scheduled interval between runs.
func (s ScanConfig) Cadence() time.Duration {
	return time.Duration(s.CadenceHours) * time.Hour
}

// Lookback returns the default history window per run.
func (s ScanConfig) Lookback() time.Duration {
	return time.Duration(s.LookbackHours) * time.Hour
}

// NotificationConfig holds collaborator endpoints for outbound signals.
type NotificationConfig struct {
	AdminWebhookURL string
	SummarizerURL   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		RateLimit: RateLimitConfig{
			WindowHours: getEnvAsInt("RATE_LIMIT_WINDOW_HOURS", 24),
			MaxTickets:  getEnvAsInt("RATE_LIMIT_MAX_TICKETS", 5),
		},
		Moderation: ModerationConfig{
			ConfidenceThreshold: getEnvAsFloat("MODERATION_CONFIDENCE_THRESHOLD", 0.7),
			FallbackConfidence:  getEnvAsFloat("MODERATION_FALLBACK_CONFIDENCE", 0.75),
		},
		AI: AIConfig{
			BaseURL:        getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         os.Getenv("AI_API_KEY"),
			Model:          getEnv("AI_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 30),
			MaxRetries:     getEnvAsInt("AI_MAX_RETRIES", 2),
		},
		Scan: ScanConfig{
			Enabled:                 getEnvAsBool("MISUSE_SCAN_ENABLED", true),
			CadenceHours:            getEnvAsInt("MISUSE_SCAN_CADENCE_HOURS", 24),
			LookbackHours:           getEnvAsInt("MISUSE_SCAN_LOOKBACK_HOURS", 24),
			BatchSize:               getEnvAsInt("MISUSE_SCAN_BATCH_SIZE", 15),
			BatchConcurrency:        getEnvAsInt("MISUSE_SCAN_BATCH_CONCURRENCY", 5),
			VolumeThreshold:         getEnvAsInt("MISUSE_SCAN_VOLUME_THRESHOLD", 5),
			DuplicateTitleThreshold: getEnvAsInt("MISUSE_SCAN_DUPLICATE_TITLES", 3),
			MinDescriptionLength:    getEnvAsInt("MISUSE_SCAN_MIN_DESCRIPTION_LENGTH", 10),
			ShortDescriptionCount:   getEnvAsInt("MISUSE_SCAN_SHORT_DESCRIPTION_COUNT", 3),
		},
		Notification: NotificationConfig{
			AdminWebhookURL: getEnv("NOTIFY_ADMIN_WEBHOOK_URL", ""),
			SummarizerURL:   getEnv("NOTIFY_SUMMARIZER_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
