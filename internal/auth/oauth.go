package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"fan-quiz-service/internal/domain"
)

const defaultStateTTL = 10 * time.Minute

type pendingLogin struct {
	nonce     string
	expiresAt time.Time
}

// OAuthService drives the browser redirect flow for the HTTP surface.
// Each issued state is bound to a raw nonce whose SHA-256 is sent to Google,
// and the returned ID token must carry that digest.
type OAuthService struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
	stateTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu      sync.Mutex
	pending map[string]pendingLogin
}

func NewOAuthService(cfg GoogleConfig, logger zerolog.Logger) *OAuthService {
	return &OAuthService{
		oauth:       cfg.oauthConfig(),
		userInfoURL: cfg.userInfoURL(),
		client:      cfg.httpClient(),
		stateTTL:    defaultStateTTL,
		logger:      logger,
		now:         time.Now,
		pending:     make(map[string]pendingLogin),
	}
}

// Begin issues a fresh state and returns it with the consent URL.
func (s *OAuthService) Begin() (state, authURL string, err error) {
	state, err = RandomNonce(nonceLength)
	if err != nil {
		return "", "", err
	}
	nonce, err := RandomNonce(nonceLength)
	if err != nil {
		return "", "", err
	}

	now := s.now()
	s.mu.Lock()
	for k, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, k)
		}
	}
	s.pending[state] = pendingLogin{nonce: nonce, expiresAt: now.Add(s.stateTTL)}
	s.mu.Unlock()

	authURL = s.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", SHA256Hex(nonce)),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return state, authURL, nil
}

// Complete consumes state, exchanges code and returns the signed-in user.
func (s *OAuthService) Complete(ctx context.Context, state, code string) (domain.User, error) {
	s.mu.Lock()
	login, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok || s.now().After(login.expiresAt) {
		return domain.User{}, ErrInvalidState
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("exchange code: %w", err)
	}

	if idToken, _ := token.Extra("id_token").(string); idToken != "" {
		if err := checkNonce(idToken, SHA256Hex(login.nonce)); err != nil {
			return domain.User{}, err
		}
	}

	user, err := fetchUserInfo(ctx, s.oauth.Client(ctx, token), s.userInfoURL)
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("oauth callback complete")
	return user, nil
}

// checkNonce reads claims without verifying the signature; the token came
// directly from the token endpoint over TLS.
func checkNonce(idToken, want string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return fmt.Errorf("parse id token: %w", err)
	}
	got, _ := claims["nonce"].(string)
	if got != want {
		return ErrNonceMismatch
	}
	return nil
}
