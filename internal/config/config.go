package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name     string `yaml:"name" env:"APP_NAME"`
		Env      string `yaml:"env" env:"APP_ENV"`
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	} `yaml:"app"`
	Server struct {
		Port            string `yaml:"port" env:"PORT"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Quiz struct {
		BankPath string `yaml:"bank_path" env:"QUIZ_BANK_PATH"`
		BankTTL  string `yaml:"bank_ttl" env:"QUIZ_BANK_TTL"`
	} `yaml:"quiz"`
	Auth Auth `yaml:"auth"`
}

// Auth selects and configures the identity provider.
type Auth struct {
	Provider          string `yaml:"provider" env:"AUTH_PROVIDER"`
	RecentLoginWindow string `yaml:"recent_login_window" env:"AUTH_RECENT_LOGIN_WINDOW"`
	JWTSecret         string `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL          string `yaml:"token_ttl" env:"JWT_TOKEN_TTL"`
	Google            struct {
		ClientID     string `yaml:"client_id" env:"GOOGLE_OAUTH_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"GOOGLE_OAUTH_CLIENT_SECRET"`
		RedirectURL  string `yaml:"redirect_url" env:"GOOGLE_OAUTH_REDIRECT_URL"`
	} `yaml:"google"`
	Static struct {
		ID          string `yaml:"id" env:"AUTH_STATIC_ID"`
		Email       string `yaml:"email" env:"AUTH_STATIC_EMAIL"`
		DisplayName string `yaml:"display_name" env:"AUTH_STATIC_DISPLAY_NAME"`
	} `yaml:"static"`
}

const (
	ProviderGoogle = "google"
	ProviderStatic = "static"
)

// Default returns the configuration used when no file overrides it.
func Default() Config {
	cfg := Config{}
	cfg.App.Name = "quiz-service"
	cfg.App.Env = "development"
	cfg.App.LogLevel = "info"
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = "5s"
	cfg.Redis.TTL = "10m"
	cfg.Quiz.BankTTL = "10m"
	cfg.Auth.Provider = ProviderStatic
	cfg.Auth.RecentLoginWindow = "5m"
	cfg.Auth.TokenTTL = "1h"
	cfg.Auth.Static.ID = "local-madridista"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Auth.Provider {
	case ProviderStatic:
		if c.Auth.Static.ID == "" {
			return errors.New("auth.static.id must be set for the static provider")
		}
	case ProviderGoogle:
		if c.Auth.Google.ClientID == "" {
			return errors.New("auth.google.client_id must be set for the google provider")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}
	return nil
}

// GoogleConfigured reports whether Google OAuth credentials are present.
func (c Config) GoogleConfigured() bool {
	return c.Auth.Google.ClientID != "" && c.Auth.Google.ClientSecret != ""
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
