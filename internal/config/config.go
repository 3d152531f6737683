package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Backend
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://127.0.0.1:8000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Session persistence
	SessionFilePath string `env:"SESSION_FILE_PATH" envDefault:"data/session.json"`

	// Forms
	SignupRedirectDelay time.Duration `env:"SIGNUP_REDIRECT_DELAY" envDefault:"2s"`

	// Dashboard extras, both disabled when empty
	HistorySyncSchedule string `env:"HISTORY_SYNC_SCHEDULE"`
	ExchangeLogPath     string `env:"EXCHANGE_LOG_PATH"`

	// Logging
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/dashboard.log"`

	// Telegram view
	TelegramBotToken  string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers      []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID       int64   `env:"ADMIN_USER_ID"`
	AllowlistFilePath string  `env:"ALLOWLIST_FILE_PATH" envDefault:"data/allowlist.json"`
	PendingFilePath   string  `env:"PENDING_FILE_PATH" envDefault:"data/pending.json"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_URL %q: %w", c.BackendURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid BACKEND_URL %q: scheme must be http or https", c.BackendURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q: missing host", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.SignupRedirectDelay <= 0 {
		return errors.New("SIGNUP_REDIRECT_DELAY must be positive")
	}
	if c.SessionFilePath == "" {
		return errors.New("SESSION_FILE_PATH must not be empty")
	}
	return nil
}

// RequireTelegram is checked by the bot entrypoint only.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
