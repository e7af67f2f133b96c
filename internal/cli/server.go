package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fan-quiz-service/internal/app"
	"fan-quiz-service/internal/auth"
	authjwt "fan-quiz-service/internal/auth/jwt"
	"fan-quiz-service/internal/config"
	"fan-quiz-service/internal/infra/memory"
	redisstore "fan-quiz-service/internal/infra/redis"
	"fan-quiz-service/internal/metrics"
	transport "fan-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath *string) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the websocket quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (defaults to server.port)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := metrics.NewRecorder()
	service := app.NewQuizService(store, newBankRepository(cfg),
		app.WithLogger(logger),
		app.WithRecorder(recorder),
	)

	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return err
	}
	tokens := authjwt.NewManager(authjwt.TokenConfig{
		Secret: secret,
		TTL:    config.TTLDuration(cfg.Auth.TokenTTL, time.Hour),
		Issuer: cfg.App.Name,
	})

	routes := transport.RouterConfig{
		Quiz:    service,
		Tokens:  tokens,
		Metrics: recorder.Handler(),
		Logger:  logger,
	}
	if cfg.GoogleConfigured() {
		routes.OAuth = auth.NewOAuthService(googleConfig(cfg), logger)
		logger.Info().Msg("google oauth routes enabled")
	} else {
		logger.Warn().Msg("google oauth not configured (missing GOOGLE_OAUTH_CLIENT_ID or GOOGLE_OAUTH_CLIENT_SECRET)")
	}
	if cfg.Auth.Provider == config.ProviderStatic {
		routes.Local = staticProvider(cfg)
		logger.Warn().Str("user_id", cfg.Auth.Static.ID).Msg("static sign-in enabled; do not use in production")
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(routes),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info().Msg("shutting down server...")
	case <-ctx.Done():
		logger.Info().Msg("context canceled, shutting down server...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newSessionStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (app.SessionRepository, func(), error) {
	if cfg.Redis.Addr == "" {
		return memory.NewSessionStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	store := redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), logger)
	if n, err := store.CountLive(pingCtx); err == nil && n > 0 {
		logger.Info().Int("sessions", n).Msg("live session markers from a previous run")
	}
	return store, func() { _ = client.Close() }, nil
}

// jwtSecret returns the configured signing secret. Outside production a
// missing secret gets a random one, which invalidates tokens on restart.
func jwtSecret(cfg config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}
	if cfg.App.Env == "production" {
		return nil, errors.New("JWT_SECRET must be configured in production")
	}
	secret, err := auth.RandomNonce(48)
	if err != nil {
		return nil, err
	}
	logger.Warn().Msg("JWT_SECRET not set; using an ephemeral secret")
	return []byte(secret), nil
}
