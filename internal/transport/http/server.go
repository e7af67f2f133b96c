package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"fan-quiz-service/internal/auth"
)

// Tokens issues and validates bearer tokens.
type Tokens interface {
	TokenValidator
	TokenIssuer
}

// RouterConfig lists what the HTTP surface is built from. OAuth, Local and
// Metrics are optional; their routes are only mounted when set.
type RouterConfig struct {
	Quiz    QuizPlayer
	Tokens  Tokens
	OAuth   *auth.OAuthService
	Local   auth.Provider
	Metrics http.Handler
	Logger  zerolog.Logger
}

// NewRouter wires every route of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	requireUser := RequireUser(cfg.Tokens, cfg.Logger)
	authHandler := NewAuthHandler(cfg.OAuth, cfg.Local, cfg.Tokens, cfg.Logger)
	wsHandler := NewWSHandler(cfg.Quiz, cfg.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.OAuth != nil {
		mux.HandleFunc("GET /v1/auth/google/start", authHandler.GoogleStart)
		mux.HandleFunc("GET /v1/auth/google/callback", authHandler.GoogleCallback)
	}
	if cfg.Local != nil {
		mux.HandleFunc("POST /v1/auth/static/token", authHandler.LocalToken)
	}
	mux.Handle("GET /v1/me", requireUser(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /ws", requireUser(http.HandlerFunc(wsHandler.ServeWS)))

	return LogRequests(cfg.Logger)(mux)
}
