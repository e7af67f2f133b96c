package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fan-quiz-service/internal/auth"
	"fan-quiz-service/internal/domain"
)

const stateCookie = "oauth_state"

// TokenIssuer mints the bearer tokens clients present on /ws and /v1/me.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
	TTL() time.Duration
}

// AuthHandler exposes sign-in over HTTP. oauth is nil when Google is not
// configured; local is nil unless the static provider is selected.
type AuthHandler struct {
	oauth  *auth.OAuthService
	local  auth.Provider
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewAuthHandler(oauth *auth.OAuthService, local auth.Provider, tokens TokenIssuer, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{oauth: oauth, local: local, tokens: tokens, logger: logger}
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
	Initials    string `json:"initials"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayNameOrEmail(),
		Initials:    u.Initials(),
	}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        userResponse `json:"user"`
}

// GoogleStart handles GET /v1/auth/google/start.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	state, authURL, err := h.oauth.Begin()
	if err != nil {
		h.logger.Error().Err(err).Msg("oauth start failed")
		RespondInternalError(w, "Could not start sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	respondJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"state":    state,
	})
}

// GoogleCallback handles GET /v1/auth/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") == "access_denied" {
		RespondUnauthorized(w, ErrCodeSignInCancelled, "Sign in was cancelled")
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" {
		RespondBadRequest(w, ErrCodeOAuthMissingCode, "Authorization code required")
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value != state {
		RespondBadRequest(w, ErrCodeOAuthInvalidState, "Invalid or missing state parameter")
		return
	}

	user, err := h.oauth.Complete(r.Context(), state, code)
	switch {
	case errors.Is(err, auth.ErrInvalidState):
		RespondBadRequest(w, ErrCodeOAuthInvalidState, "Invalid or expired state parameter")
		return
	case errors.Is(err, auth.ErrNonceMismatch):
		RespondUnauthorized(w, ErrCodeOAuthCallbackFailed, "Identity token was not issued for this sign-in")
		return
	case err != nil:
		h.logger.Warn().Err(err).Msg("oauth callback failed")
		RespondError(w, http.StatusBadGateway, ErrCodeOAuthCallbackFailed, "Sign in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	h.respondToken(w, user)
}

// LocalToken handles POST /v1/auth/static/token for the static provider.
func (h *AuthHandler) LocalToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.local.SignIn(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrSignInCancelled) {
			RespondUnauthorized(w, ErrCodeSignInCancelled, "Sign in was cancelled")
			return
		}
		RespondUnauthorized(w, ErrCodeSignInFailed, "Sign in failed: "+err.Error())
		return
	}
	h.respondToken(w, user)
}

// Me handles GET /v1/me. Mount it behind RequireUser.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		RespondUnauthorized(w, ErrCodeUnauthorized, "Invalid or missing token")
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, user domain.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error().Err(err).Msg("issue token failed")
		RespondInternalError(w, "Could not issue token")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
		User:        newUserResponse(user),
	})
}
