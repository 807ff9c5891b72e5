package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	BaseURL   string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	OAuth       OAuthConfig
	CORS        CORSConfig
	Log         LogConfig
	Corrections CorrectionsConfig
	Discord     DiscordConfig
	RateLimit   RateLimitConfig
	CSRF        CSRFConfig
	Moderation  ModerationConfig
	Dashboard   DashboardConfig
	Exports     ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

// OAuthConfig carries provider credentials for the sign-in flow.
type OAuthConfig struct {
	DiscordClientID     string
	DiscordClientSecret string
	GoogleClientID      string
	GoogleClientSecret  string
	RedirectBaseURL     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CorrectionsConfig tunes the merge/supersede resolver.
type CorrectionsConfig struct {
	MergeWindow time.Duration
	ListCap     int
}

// DiscordConfig points the notification sink at a webhook.
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// RateLimitConfig bounds correction submissions per user.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// CSRFConfig configures the anti-forgery token check.
type CSRFConfig struct {
	Secret string
	TTL    time.Duration
}

// ModerationConfig holds the developer allowlist permitted to alter admin roles.
type ModerationConfig struct {
	DeveloperEmails []string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig controls self-service data export storage.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.BaseURL = v.GetString("BASE_URL")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.OAuth = OAuthConfig{
		DiscordClientID:     v.GetString("OAUTH_DISCORD_CLIENT_ID"),
		DiscordClientSecret: v.GetString("OAUTH_DISCORD_CLIENT_SECRET"),
		GoogleClientID:      v.GetString("OAUTH_GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  v.GetString("OAUTH_GOOGLE_CLIENT_SECRET"),
		RedirectBaseURL:     v.GetString("OAUTH_REDIRECT_BASE_URL"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Corrections = CorrectionsConfig{
		MergeWindow: parseDuration(v.GetString("CORRECTIONS_MERGE_WINDOW"), 10*time.Minute),
		ListCap:     v.GetInt("CORRECTIONS_LIST_CAP"),
	}

	cfg.Discord = DiscordConfig{
		WebhookURL: v.GetString("DISCORD_WEBHOOK_URL"),
		Enabled:    v.GetBool("DISCORD_NOTIFICATIONS_ENABLED"),
		Workers:    v.GetInt("DISCORD_WORKER_CONCURRENCY"),
		MaxRetries: v.GetInt("DISCORD_WORKER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("DISCORD_RETRY_DELAY"), 5*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		Limit:   v.GetInt("RATE_LIMIT_SUBMISSIONS"),
		Window:  parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.CSRF = CSRFConfig{
		Secret: v.GetString("CSRF_SECRET"),
		TTL:    parseDuration(v.GetString("CSRF_TOKEN_TTL"), time.Hour),
	}

	cfg.Moderation = ModerationConfig{
		DeveloperEmails: splitAndTrim(v.GetString("DEVELOPER_EMAILS")),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gfwl_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CORRECTIONS_MERGE_WINDOW", "10m")
	v.SetDefault("CORRECTIONS_LIST_CAP", 1000)

	v.SetDefault("DISCORD_NOTIFICATIONS_ENABLED", false)
	v.SetDefault("DISCORD_WEBHOOK_URL", "")
	v.SetDefault("DISCORD_WORKER_CONCURRENCY", 1)
	v.SetDefault("DISCORD_WORKER_RETRIES", 3)
	v.SetDefault("DISCORD_RETRY_DELAY", "5s")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_SUBMISSIONS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("CSRF_SECRET", "dev_csrf_secret")
	v.SetDefault("CSRF_TOKEN_TTL", "1h")

	v.SetDefault("DEVELOPER_EMAILS", "")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
