package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL     string
	HTTPAddr        string
	JWTSecret       string
	TokenTTL        time.Duration
	LogLevel        string
	Environment     string
	CronSpecSweep   string // Daily payment generation + status sweep
	SweepTimeout    time.Duration
	SweepOnStart    bool // Run one sweep as soon as `serve` starts
	DueSoonLeadDays int
	DefaultGrace    int
	ReceiptMaxBytes int64
	ReceiptDir      string
	ReceiptHashKey  string
	// NotifyTenantOnReceiptReject messages the tenant when a landlord rejects their receipt.
	NotifyTenantOnReceiptReject bool
	LoginRatePerMinute          int
	TelegramToken               string // Optional; enables Telegram delivery and the bot
	SSEPingInterval             time.Duration

	// Email reminders go through SMTP when SMTPHost is set and are logged otherwise.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist; existing env variables win.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	cfg.HTTPAddr = stringOr("HTTP_ADDR", ":8080")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecSweep = stringOr("CRON_SPEC_SWEEP", "0 6 * * *") // 06:00 daily

	if cfg.SweepTimeout, err = durationOr("SWEEP_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = durationOr("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SSEPingInterval, err = durationOr("SSE_PING_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DueSoonLeadDays, err = intOr("DUE_SOON_LEAD_DAYS", 3); err != nil {
		return nil, err
	}
	if cfg.DefaultGrace, err = intOr("DEFAULT_GRACE_DAYS", 5); err != nil {
		return nil, err
	}
	if cfg.LoginRatePerMinute, err = intOr("LOGIN_RATE_PER_MINUTE", 5); err != nil {
		return nil, err
	}
	maxBytes, err := intOr("RECEIPT_MAX_BYTES", 5<<20)
	if err != nil {
		return nil, err
	}
	cfg.ReceiptMaxBytes = int64(maxBytes)
	if cfg.DueSoonLeadDays < 0 || cfg.DefaultGrace < 0 || cfg.ReceiptMaxBytes <= 0 || cfg.LoginRatePerMinute <= 0 {
		return nil, fmt.Errorf("invalid numeric configuration: lead=%d grace=%d receipt_max=%d login_rate=%d",
			cfg.DueSoonLeadDays, cfg.DefaultGrace, cfg.ReceiptMaxBytes, cfg.LoginRatePerMinute)
	}

	cfg.ReceiptDir = stringOr("RECEIPT_DIR", "./data/receipts")
	cfg.ReceiptHashKey = stringOr("RECEIPT_HASH_KEY", cfg.JWTSecret)

	if cfg.NotifyTenantOnReceiptReject, err = boolOr("NOTIFY_TENANT_ON_RECEIPT_REJECT", false); err != nil {
		return nil, err
	}
	if cfg.SweepOnStart, err = boolOr("SWEEP_ON_START", true); err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = intOr("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFrom = stringOr("SMTP_FROM", "LandTen <noreply@landten.local>")

	return cfg, nil
}

// IsProduction reports whether logs should be machine readable.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) (int, error) {
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

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
