package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dosada05/association-portal/storage"
)

const (
	defaultServerPort        = 8080
	defaultClientIdleTimeout = 30 * time.Minute
	minSessionSecretLength   = 32
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	SupabaseURL     string
	SupabaseAnonKey string
	// SupabaseJWTSecret enables local verification of access tokens.
	SupabaseJWTSecret string
	// DatabaseURL switches queries from the REST API to a direct connection.
	DatabaseURL string

	SessionSecret     string
	CookieSecure      bool
	ServerPort        int
	ClientIdleTimeout time.Duration
	AllowedOrigins    []string
	LogLevel          slog.Level

	R2 storage.CloudflareR2UploaderConfig
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv. Every problem is reported,
// not only the first one.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	required := func(name string) string {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is not set", name))
		}
		return v
	}

	cfg := &Config{
		SupabaseURL:       strings.TrimSuffix(required("SUPABASE_URL"), "/"),
		SupabaseAnonKey:   required("SUPABASE_ANON_KEY"),
		SessionSecret:     required("SESSION_SECRET"),
		SupabaseJWTSecret: strings.TrimSpace(getenv("SUPABASE_JWT_SECRET")),
		DatabaseURL:       strings.TrimSpace(getenv("DATABASE_URL")),
		CookieSecure:      true,
		ServerPort:        defaultServerPort,
		ClientIdleTimeout: defaultClientIdleTimeout,
		LogLevel:          slog.LevelInfo,
		R2: storage.CloudflareR2UploaderConfig{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	if cfg.SessionSecret != "" && len(cfg.SessionSecret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength))
	}

	if portStr := getenv("SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err))
		case port <= 0 || port > 65535:
			errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port))
		default:
			cfg.ServerPort = port
		}
	}

	if v := getenv("CLIENT_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid CLIENT_IDLE_TIMEOUT %q: expected a positive duration", v))
		} else {
			cfg.ClientIdleTimeout = d
		}
	}

	if v := getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid COOKIE_SECURE: %w", err))
		} else {
			cfg.CookieSecure = b
		}
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
		}
	}

	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StorageEnabled reports whether logo uploads can be served.
func (c *Config) StorageEnabled() bool {
	return c.R2.Configured()
}
