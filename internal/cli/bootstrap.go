package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"fan-quiz-service/internal/auth"
	"fan-quiz-service/internal/config"
	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/infra/memory"
	"fan-quiz-service/internal/logging"
)

// loadConfig reads path, tolerating a missing file at the default location.
func loadConfig(path string) (config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	return logging.New(cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)
}

func newBankRepository(cfg config.Config) *memory.BankRepository {
	var loader memory.BankLoader = memory.EmbeddedBankLoader{}
	if cfg.Quiz.BankPath != "" {
		loader = memory.NewFileBankLoader(cfg.Quiz.BankPath)
	}
	return memory.NewBankRepository(loader, config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute))
}

func googleConfig(cfg config.Config) auth.GoogleConfig {
	return auth.GoogleConfig{
		ClientID:          cfg.Auth.Google.ClientID,
		ClientSecret:      cfg.Auth.Google.ClientSecret,
		RedirectURL:       cfg.Auth.Google.RedirectURL,
		RecentLoginWindow: recentLoginWindow(cfg),
	}
}

func recentLoginWindow(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Auth.RecentLoginWindow, 5*time.Minute)
}

func staticProvider(cfg config.Config) *auth.StaticProvider {
	user := domain.User{
		ID:          cfg.Auth.Static.ID,
		Email:       cfg.Auth.Static.Email,
		DisplayName: cfg.Auth.Static.DisplayName,
	}
	return auth.NewStaticProvider(user, recentLoginWindow(cfg))
}

// newProvider builds the provider the terminal commands sign in with.
func newProvider(cfg config.Config, prompt auth.DevicePrompt, logger zerolog.Logger) auth.Provider {
	if cfg.Auth.Provider == config.ProviderGoogle {
		return auth.NewGoogleProvider(googleConfig(cfg), prompt, logger)
	}
	return staticProvider(cfg)
}
