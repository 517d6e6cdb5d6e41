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
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	Env  string
	Port string

	DBDriver           string // "postgres" | "sqlite"
	DatabaseURL        string
	SQLitePath         string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ReportsDatabaseURL string

	RedisAddr string
	RedisPwd  string

	JWTSecret      string
	TokenTTL       time.Duration
	WebOrigin      string
	TrustedProxies []string // 为空时只认 RemoteAddr

	BootstrapAdminRegistration string
	BootstrapAdminEmail        string
	BootstrapAdminPassword     string

	FinePerDay       float64
	LoginMaxAttempts int64
	LoginWindow      time.Duration
}

const devJWTSecret = "dev-secret-change-me"

// LoadEnv loads a .env file when present. Variables already set in the
// environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
		return
	}
	slog.Info(".env file loaded")
}

func (c Config) Production() bool { return c.Env == "production" }

// Load reads the environment. JWT_SECRET is mandatory in production.
func Load() (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:                get("APP_ENV", "development"),
		Port:               get("PORT", "3000"),
		DBDriver:           strings.ToLower(get("DB_DRIVER", "postgres")),
		DatabaseURL:        get("DATABASE_URL", ""),
		SQLitePath:         get("SQLITE_PATH", "library.db"),
		ReportsDatabaseURL: get("REPORTS_DATABASE_URL", ""),
		RedisAddr:          get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:           os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		WebOrigin:          get("WEB_ORIGIN", "http://localhost:5173"),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),

		BootstrapAdminRegistration: get("BOOTSTRAP_ADMIN_REGISTRATION", "admin"),
		BootstrapAdminEmail:        strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		BootstrapAdminPassword:     os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
	if cfg.DatabaseURL == "" && cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			get("DB_HOST", "127.0.0.1"),
			get("DB_USER", "postgres"),
			get("DB_PASSWORD", "postgres"),
			get("DB_NAME", "library_db"),
			get("DB_PORT", "5432"),
			get("DB_SSLMODE", "disable"),
		)
	}

	var err error
	if cfg.MaxOpenConns, err = atoi(get("DB_MAX_OPEN_CONNS", "20")); err != nil {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.MaxIdleConns, err = atoi(get("DB_MAX_IDLE_CONNS", "5")); err != nil {
		return Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	if cfg.ConnMaxLifetime, err = time.ParseDuration(get("DB_CONN_MAX_LIFETIME", "30m")); err != nil {
		return Config{}, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
	}
	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "1h")); err != nil {
		return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.FinePerDay, err = strconv.ParseFloat(get("FINE_PER_DAY", "2"), 64); err != nil || cfg.FinePerDay < 0 {
		return Config{}, fmt.Errorf("FINE_PER_DAY must be a non-negative number")
	}
	attempts, err := atoi(get("LOGIN_MAX_ATTEMPTS", "5"))
	if err != nil {
		return Config{}, fmt.Errorf("LOGIN_MAX_ATTEMPTS: %w", err)
	}
	cfg.LoginMaxAttempts = int64(attempts)
	if cfg.LoginWindow, err = time.ParseDuration(get("LOGIN_WINDOW", "1m")); err != nil {
		return Config{}, fmt.Errorf("LOGIN_WINDOW: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.BootstrapAdminEmail != "" && len(cfg.BootstrapAdminPassword) < 6 {
		return Config{}, errors.New("BOOTSTRAP_ADMIN_PASSWORD must be at least 6 characters")
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

// splitList 逗号分隔，去空白，空串返回 nil
func splitList(csv string) []string {
	var out []string
	for _, v := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// String masks secrets.
func (c Config) String() string {
	return fmt.Sprintf("Config{env: %s, port: %s, db: %s, redis: %s, reports replica: %t, jwt: *** (masked) ***}",
		c.Env, c.Port, c.DBDriver, c.RedisAddr, c.ReportsDatabaseURL != "")
}
