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

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Lock      LockConfig
	Assistant AssistantConfig
	CORS      CORSConfig
	Log       LogConfig
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

// AuthConfig governs session lifetimes and the federated identity check.
type AuthConfig struct {
	PINSessionTTL      time.Duration
	EmailSessionTTL    time.Duration
	FederatedJWTSecret string
	FederatedJWTIssuer string
	OwnerEmail         string
	OwnerName          string
}

// RateLimitConfig tunes the login attempt limiter.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// LockConfig tunes the advisory write lock. Lease is the maximum hold time
// before an abandoned lock expires on its own.
type LockConfig struct {
	Wait  time.Duration
	Lease time.Duration
}

// AssistantConfig bounds the story assistant.
type AssistantConfig struct {
	Enabled        bool
	Model          string
	MaxSessions    int
	MaxMessages    int
	DailyQuota     int
	SecretFile     string
	RequestTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.Auth = AuthConfig{
		PINSessionTTL:      parseDuration(v.GetString("PIN_SESSION_TTL"), time.Hour),
		EmailSessionTTL:    parseDuration(v.GetString("EMAIL_SESSION_TTL"), 8*time.Hour),
		FederatedJWTSecret: v.GetString("FEDERATED_JWT_SECRET"),
		FederatedJWTIssuer: v.GetString("FEDERATED_JWT_ISSUER"),
		OwnerEmail:         v.GetString("OWNER_EMAIL"),
		OwnerName:          v.GetString("OWNER_NAME"),
	}

	cfg.RateLimit = RateLimitConfig{
		MaxAttempts: v.GetInt("RATE_LIMIT_MAX_ATTEMPTS"),
		Window:      parseDuration(v.GetString("RATE_LIMIT_WINDOW"), 15*time.Minute),
		Lockout:     parseDuration(v.GetString("RATE_LIMIT_LOCKOUT"), 30*time.Minute),
	}

	cfg.Lock = LockConfig{
		Wait:  parseDuration(v.GetString("WRITE_LOCK_WAIT"), 10*time.Second),
		Lease: parseDuration(v.GetString("WRITE_LOCK_LEASE"), 30*time.Second),
	}

	cfg.Assistant = AssistantConfig{
		Enabled:        v.GetBool("ASSISTANT_ENABLED"),
		Model:          v.GetString("ASSISTANT_MODEL"),
		MaxSessions:    v.GetInt("ASSISTANT_MAX_SESSIONS"),
		MaxMessages:    v.GetInt("ASSISTANT_MAX_MESSAGES"),
		DailyQuota:     v.GetInt("ASSISTANT_DAILY_QUOTA"),
		SecretFile:     v.GetString("ASSISTANT_SECRET_FILE"),
		RequestTimeout: parseDuration(v.GetString("ASSISTANT_REQUEST_TIMEOUT"), 30*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "storybook")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PIN_SESSION_TTL", "1h")
	v.SetDefault("EMAIL_SESSION_TTL", "8h")
	v.SetDefault("FEDERATED_JWT_SECRET", "")
	v.SetDefault("FEDERATED_JWT_ISSUER", "")
	v.SetDefault("OWNER_EMAIL", "")
	v.SetDefault("OWNER_NAME", "Owner")

	v.SetDefault("RATE_LIMIT_MAX_ATTEMPTS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_LOCKOUT", "30m")

	v.SetDefault("WRITE_LOCK_WAIT", "10s")
	v.SetDefault("WRITE_LOCK_LEASE", "30s")

	v.SetDefault("ASSISTANT_ENABLED", false)
	v.SetDefault("ASSISTANT_MODEL", "gpt-4o-mini")
	v.SetDefault("ASSISTANT_MAX_SESSIONS", 5)
	v.SetDefault("ASSISTANT_MAX_MESSAGES", 50)
	v.SetDefault("ASSISTANT_DAILY_QUOTA", 20)
	v.SetDefault("ASSISTANT_SECRET_FILE", "")
	v.SetDefault("ASSISTANT_REQUEST_TIMEOUT", "30s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
