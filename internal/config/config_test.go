package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "BACKEND_URL", "REQUEST_TIMEOUT", "SIGNUP_REDIRECT_DELAY", "SESSION_FILE_PATH", "HISTORY_SYNC_SCHEDULE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.SignupRedirectDelay)
	assert.Equal(t, "data/session.json", cfg.SessionFilePath)
	assert.Empty(t, cfg.HistorySyncSchedule)
}

// unsetEnv clears keys for the duration of the test; an empty but set
// variable would override envDefault.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadOverrides(t *testing.T) {
	unsetEnv(t, "REQUEST_TIMEOUT", "SESSION_FILE_PATH")
	t.Setenv("BACKEND_URL", "https://assistant.example.com")
	t.Setenv("SIGNUP_REDIRECT_DELAY", "500ms")
	t.Setenv("ALLOWED_USERS", "10:20")
	t.Setenv("ADMIN_USER_ID", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://assistant.example.com", cfg.BackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.SignupRedirectDelay)
	assert.Equal(t, []int64{10, 20}, cfg.AllowedUsers)
	assert.Equal(t, int64(10), cfg.AdminUserID)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			BackendURL:          "http://localhost:8000",
			RequestTimeout:      time.Second,
			SignupRedirectDelay: time.Second,
			SessionFilePath:     "s.json",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad scheme", mutate: func(c *Config) { c.BackendURL = "ftp://host" }, wantErr: true},
		{name: "missing host", mutate: func(c *Config) { c.BackendURL = "http://" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.SignupRedirectDelay = -time.Second }, wantErr: true},
		{name: "no session path", mutate: func(c *Config) { c.SessionFilePath = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireTelegram(t *testing.T) {
	c := Config{}
	assert.Error(t, c.RequireTelegram())
	c.TelegramBotToken = "123:abc"
	assert.NoError(t, c.RequireTelegram())
}
