package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	NotifierSMTP = "smtp"
	NotifierLog  = "log"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL      string
	Port             string
	JWTSecret        string
	SessionTTL       time.Duration
	StoreTimeout     time.Duration
	FleetConcurrency int
	PublicBaseURL    string
	DevMode          bool

	Notifier     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             "8080",
		SessionTTL:       time.Hour,
		StoreTimeout:     5 * time.Second,
		FleetConcurrency: 8,
		PublicBaseURL:    "http://localhost:8080",
		SMTPPort:         587,
		LogLevel:         "info",
		LogFormat:        "text",
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return nil, err
	}
	if cfg.FleetConcurrency, err = intEnv("FLEET_CONCURRENCY", cfg.FleetConcurrency); err != nil {
		return nil, err
	}
	if cfg.FleetConcurrency < 1 {
		return nil, fmt.Errorf("FLEET_CONCURRENCY must be at least 1")
	}

	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		cfg.PublicBaseURL = strings.TrimRight(base, "/")
	}

	// Notifier: explicit NOTIFIER wins, otherwise DEV_MODE picks the log notifier
	cfg.Notifier = strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFIER")))
	if cfg.Notifier == "" {
		cfg.Notifier = NotifierSMTP
		if cfg.DevMode {
			cfg.Notifier = NotifierLog
		}
	}
	switch cfg.Notifier {
	case NotifierLog:
	case NotifierSMTP:
		cfg.SMTPHost = os.Getenv("SMTP_HOST")
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST environment variable is required when NOTIFIER=smtp")
		}
		if cfg.SMTPPort, err = intEnv("SMTP_PORT", cfg.SMTPPort); err != nil {
			return nil, err
		}
		cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
		cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
		cfg.MailFrom = os.Getenv("MAIL_FROM")
		if cfg.MailFrom == "" {
			cfg.MailFrom = cfg.SMTPUsername
		}
		if cfg.MailFrom == "" {
			return nil, fmt.Errorf("MAIL_FROM or SMTP_USERNAME environment variable is required when NOTIFIER=smtp")
		}
	default:
		return nil, fmt.Errorf("NOTIFIER must be %q or %q, got %q", NotifierSMTP, NotifierLog, cfg.Notifier)
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
