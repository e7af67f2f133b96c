package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	authjwt "fan-quiz-service/internal/auth/jwt"
	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/logging"
)

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(token string) (*authjwt.Claims, error)
}

type ctxKey int

const userKey ctxKey = iota

// UserFromContext returns the user RequireUser attached to the request.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter since browsers cannot set headers on websocket dials.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	token := r.URL.Query().Get("token")
	return token, token != ""
}

// RequireUser rejects requests without a valid bearer token.
func RequireUser(tokens TokenValidator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				RespondUnauthorized(w, ErrCodeAuthenticationRequired, "Sign in to play")
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				if errors.Is(err, authjwt.ErrExpiredToken) {
					RespondUnauthorized(w, ErrCodeTokenExpired, "Token expired")
					return
				}
				RespondUnauthorized(w, ErrCodeInvalidToken, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, claims.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger prefers the logger LogRequests put on the context.
func requestLogger(r *http.Request, fallback zerolog.Logger) zerolog.Logger {
	if l := logging.FromContext(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack is required by the websocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// LogRequests logs one line per request.
func LogRequests(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
			reqLogger.Debug().
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
