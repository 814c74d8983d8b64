// ABOUTME: Environment-backed configuration for the bot
// ABOUTME: Loads credentials and the public base URL once at startup
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	defaultBaseURL = "http://localhost:3100"
	defaultPort    = "3100"
)

type Config struct {
	TelegramToken      string
	GoogleClientID     string
	GoogleClientSecret string

	// BaseURL is the public base URL of this process. The OAuth redirect
	// URL and the listen port are both derived from it.
	BaseURL string

	// TokenFile is where per-user OAuth tokens are persisted.
	TokenFile string
}

// Load reads configuration from the environment. Missing required values
// are an error; the process must not start without them.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		BaseURL:            os.Getenv("APP_BASE_URL"),
		TokenFile:          os.Getenv("TOKENS_FILE"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("missing GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid APP_BASE_URL: %w", err)
	}

	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(xdg.DataHome, "goodmemory", "tokens.json")
	}

	return cfg, nil
}

// RedirectURL returns the OAuth callback URL under the public base URL.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/oauth2callback"
}

// ListenAddr returns the address the HTTP listener binds to. The port
// comes from the base URL when it carries one.
func (c *Config) ListenAddr() string {
	u, err := url.Parse(c.BaseURL)
	if err == nil && u.Port() != "" {
		return ":" + u.Port()
	}
	return ":" + defaultPort
}
