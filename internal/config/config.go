// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// SessionBackend はセッションの保存先を表す。
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// OAuth
	GoogleClientID          string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret      string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleClientSecretsFile string `env:"GOOGLE_CLIENT_SECRETS_FILE"`
	GoogleRedirectURL       string `env:"GOOGLE_REDIRECT_URL" envDefault:"postmessage"`

	// Session
	SessionSecret          string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionMaxAge          int           `env:"SESSION_MAX_AGE" envDefault:"86400"`
	SessionBackend         string        `env:"SESSION_BACKEND" envDefault:"postgres"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
	RedisURL               string        `env:"REDIS_URL"`

	// Catalog
	RecentItemsLimit  int  `env:"RECENT_ITEMS_LIMIT" envDefault:"5"`
	NotOwnerForbidden bool `env:"NOT_OWNER_FORBIDDEN" envDefault:"false"`

	// Rate Limit (req/min)
	RateLimitMutations int `env:"RATE_LIMIT_MUTATIONS" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

// clientSecrets はGoogle Cloud Consoleからダウンロードするclient_secrets.jsonの形式。
type clientSecrets struct {
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadDotEnv はカレントディレクトリの.envファイルを環境変数に読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.GoogleClientSecretsFile != "" && (cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "") {
		if err := cfg.loadClientSecrets(cfg.GoogleClientSecretsFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

func (c *Config) loadClientSecrets(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read client secrets file: %w", err)
	}

	var secrets clientSecrets
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return fmt.Errorf("failed to parse client secrets file: %w", err)
	}

	if c.GoogleClientID == "" {
		c.GoogleClientID = secrets.Web.ClientID
	}
	if c.GoogleClientSecret == "" {
		c.GoogleClientSecret = secrets.Web.ClientSecret
	}
	return nil
}

func (c *Config) validate() error {
	var missing []string
	if c.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch c.SessionBackend {
	case SessionBackendPostgres:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.RecentItemsLimit <= 0 {
		return fmt.Errorf("RECENT_ITEMS_LIMIT must be positive, got %d", c.RecentItemsLimit)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", c.SessionMaxAge)
	}
	if c.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive, got %s", c.SessionCleanupInterval)
	}
	if c.RateLimitMutations <= 0 {
		return fmt.Errorf("RATE_LIMIT_MUTATIONS must be positive, got %d", c.RateLimitMutations)
	}
	return nil
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}
