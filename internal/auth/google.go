package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"fan-quiz-service/internal/domain"
)

const (
	DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	DefaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

var defaultScopes = []string{"openid", "email", "profile"}

// GoogleConfig holds OAuth client settings shared by the device and web flows.
// Zero-valued endpoints fall back to Google's production URLs.
type GoogleConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	Scopes            []string
	RecentLoginWindow time.Duration
	Endpoint          oauth2.Endpoint
	UserInfoURL       string
	RevokeURL         string
	HTTPClient        *http.Client
}

func (c GoogleConfig) oauthConfig() *oauth2.Config {
	endpoint := c.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

func (c GoogleConfig) userInfoURL() string {
	if c.UserInfoURL == "" {
		return DefaultUserInfoURL
	}
	return c.UserInfoURL
}

func (c GoogleConfig) revokeURL() string {
	if c.RevokeURL == "" {
		return DefaultRevokeURL
	}
	return c.RevokeURL
}

func (c GoogleConfig) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// DevicePrompt shows the verification URL and user code of a device sign-in.
type DevicePrompt func(verificationURL, userCode string)

// GoogleProvider signs users in with Google's OAuth device authorization flow,
// which suits terminals without a browser redirect target.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	revokeURL   string
	recentLogin time.Duration
	client      *http.Client
	prompt      DevicePrompt
	logger      zerolog.Logger
	now         func() time.Time
	feed        *stateFeed

	mu         sync.Mutex
	user       *domain.User
	token      *oauth2.Token
	signedInAt time.Time
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(cfg GoogleConfig, prompt DevicePrompt, logger zerolog.Logger) *GoogleProvider {
	if prompt == nil {
		prompt = func(string, string) {}
	}
	return &GoogleProvider{
		oauth:       cfg.oauthConfig(),
		userInfoURL: cfg.userInfoURL(),
		revokeURL:   cfg.revokeURL(),
		recentLogin: cfg.RecentLoginWindow,
		client:      cfg.httpClient(),
		prompt:      prompt,
		logger:      logger,
		now:         time.Now,
		feed:        newStateFeed(),
	}
}

func (p *GoogleProvider) CurrentUser() *domain.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyUser(p.user)
}

func (p *GoogleProvider) SignIn(ctx context.Context) (domain.User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	da, err := p.oauth.DeviceAuth(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("device authorization: %w", err)
	}
	verification := da.VerificationURIComplete
	if verification == "" {
		verification = da.VerificationURI
	}
	p.prompt(verification, da.UserCode)

	token, err := p.oauth.DeviceAccessToken(ctx, da)
	if err != nil {
		if isAccessDenied(err) || errors.Is(err, context.Canceled) {
			return domain.User{}, ErrSignInCancelled
		}
		return domain.User{}, fmt.Errorf("device token: %w", err)
	}

	user, err := fetchUserInfo(ctx, p.oauth.Client(ctx, token), p.userInfoURL)
	if err != nil {
		return domain.User{}, err
	}

	now := p.now()
	p.mu.Lock()
	p.user = &user
	p.token = token
	p.signedInAt = now
	p.mu.Unlock()

	p.logger.Info().Str("user_id", user.ID).Msg("google sign-in complete")
	p.feed.publish(&user, now)
	return user, nil
}

func (p *GoogleProvider) SignOut(context.Context) error {
	p.mu.Lock()
	wasSignedIn := p.user != nil
	p.user = nil
	p.token = nil
	p.mu.Unlock()

	if wasSignedIn {
		p.feed.publish(nil, p.now())
	}
	return nil
}

// DeleteAccount revokes the app's Google grant. Google owns the account
// itself, so revocation is the deepest deletion available to a client.
func (p *GoogleProvider) DeleteAccount(ctx context.Context) error {
	now := p.now()
	p.mu.Lock()
	if p.user == nil || p.token == nil {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	if p.recentLogin > 0 && now.Sub(p.signedInAt) > p.recentLogin {
		p.mu.Unlock()
		return ErrReauthenticationRequired
	}
	token := p.token.AccessToken
	userID := p.user.ID
	p.mu.Unlock()

	if err := p.revoke(ctx, token); err != nil {
		return err
	}

	p.mu.Lock()
	p.user = nil
	p.token = nil
	p.mu.Unlock()

	p.logger.Info().Str("user_id", userID).Msg("google grant revoked")
	p.feed.publish(nil, now)
	return nil
}

func (p *GoogleProvider) Subscribe() (<-chan StateChange, func()) {
	return p.feed.subscribe(p.now())
}

func (p *GoogleProvider) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("revoke token: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func isAccessDenied(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re) && re.ErrorCode == "access_denied"
}
