package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"frontdesk-gateway/internal/pkg/jwt"
)

// SessionPolicy is the single source of the session timing rules. RefreshLead
// doubles as the expiring-soon threshold.
type SessionPolicy struct {
	MaxAge      time.Duration
	RefreshLead time.Duration
	Cooldown    time.Duration
}

type AppConfig struct {
	// Server
	HTTPAddr  string
	Env       string
	StaticDir string
	LogLevel  string

	// Storage
	RedisAddr   string
	RedisPass   string
	DatabaseURL string

	// Backend
	APIURL         string
	BackendTimeout time.Duration

	// Session cookie
	JWT jwt.Config

	Session SessionPolicy

	// Monitor
	ProbeInterval time.Duration
	IdleTimeout   time.Duration

	// CSRF
	CSRFMode  string
	CSRFStore string
}

// Load loads environment variables into AppConfig.
func Load() (AppConfig, error) {
	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		d, err := getEnvDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg := AppConfig{
		HTTPAddr:  getEnv("HTTP_ADDR", ":3000"),
		Env:       getEnv("NODE_ENV", "development"),
		StaticDir: getEnv("STATIC_DIR", "./web/dist"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASS", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		APIURL:         strings.TrimRight(getEnv("NEXT_PUBLIC_API_URL", ""), "/"),
		BackendTimeout: duration("BACKEND_TIMEOUT", 10*time.Second),

		JWT: jwt.Config{
			Secret: getEnv("NEXTAUTH_SECRET", ""),
			Issuer: "frontdesk-gateway",
		},

		Session: SessionPolicy{
			MaxAge:      duration("SESSION_MAX_AGE", 24*time.Hour),
			RefreshLead: duration("TOKEN_REFRESH_LEAD", 5*time.Minute),
			Cooldown:    duration("REFRESH_COOLDOWN", 10*time.Second),
		},

		ProbeInterval: duration("MONITOR_PROBE_INTERVAL", 5*time.Minute),
		IdleTimeout:   duration("MONITOR_IDLE_TIMEOUT", 30*time.Minute),

		CSRFMode:  strings.ToLower(getEnv("CSRF_MODE", "header")),
		CSRFStore: strings.ToLower(getEnv("CSRF_STORE", "redis")),
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the gateway cannot run with.
func (c AppConfig) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("NEXTAUTH_SECRET is required"))
	}
	if c.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE must be positive"))
	}
	if c.Session.RefreshLead <= 0 || c.Session.RefreshLead >= c.Session.MaxAge {
		errs = append(errs, fmt.Errorf("TOKEN_REFRESH_LEAD %s must be positive and below SESSION_MAX_AGE %s", c.Session.RefreshLead, c.Session.MaxAge))
	}
	if c.Session.Cooldown <= 0 {
		errs = append(errs, errors.New("REFRESH_COOLDOWN must be positive"))
	}
	switch c.CSRFMode {
	case "header", "session":
	default:
		errs = append(errs, fmt.Errorf("CSRF_MODE %q: want header or session", c.CSRFMode))
	}
	switch c.CSRFStore {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("CSRF_STORE %q: want redis or memory", c.CSRFStore))
	}

	return errors.Join(errs...)
}

// IsProduction switches the session cookie to its __Secure- form.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
