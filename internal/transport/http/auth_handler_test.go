package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"fan-quiz-service/internal/auth"
)

// fakeGoogle answers the token and userinfo calls of the web flow. The
// id_token it returns carries whatever nonce the test last set.
type fakeGoogle struct {
	*httptest.Server
	mu    sync.Mutex
	nonce string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		nonce := g.nonce
		g.mu.Unlock()
		idToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "g-5", "nonce": nonce}).
			SignedString([]byte("google"))
		respondJSON(w, http.StatusOK, map[string]any{
			"access_token": "at-5",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"sub": "g-5", "email": "zizou@example.com", "name": "Zinedine Zidane"})
	})
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGoogle) setNonce(n string) {
	g.mu.Lock()
	g.nonce = n
	g.mu.Unlock()
}

func (g *fakeGoogle) oauthService() *auth.OAuthService {
	return auth.NewOAuthService(auth.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/v1/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   g.URL + "/auth",
			TokenURL:  g.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: g.URL + "/userinfo",
	}, zerolog.Nop())
}

func startGoogleLogin(t *testing.T, env *testEnv) (state, nonce string, cookie *http.Cookie) {
	t.Helper()
	resp, err := http.Get(env.server.URL + "/v1/auth/google/start")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	authURL, err := url.Parse(body["auth_url"])
	require.NoError(t, err)
	require.Equal(t, body["state"], authURL.Query().Get("state"))

	for _, c := range resp.Cookies() {
		if c.Name == stateCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	return body["state"], authURL.Query().Get("nonce"), cookie
}

func callback(t *testing.T, env *testEnv, query url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/v1/auth/google/callback?"+query.Encode(), nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestGoogleCallbackIssuesToken(t *testing.T) {
	google := newFakeGoogle(t)
	env := newTestEnv(t, google.oauthService())

	state, nonce, cookie := startGoogleLogin(t, env)
	google.setNonce(nonce)

	resp := callback(t, env, url.Values{"state": {state}, "code": {"code-1"}}, cookie)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "g-5", body.User.ID)
	assert.Equal(t, "ZZ", body.User.Initials)

	claims, err := env.tokens.Validate(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "zizou@example.com", claims.Email)
}

func TestGoogleCallbackRejections(t *testing.T) {
	google := newFakeGoogle(t)
	env := newTestEnv(t, google.oauthService())

	t.Run("cancelled", func(t *testing.T) {
		resp := callback(t, env, url.Values{"error": {"access_denied"}}, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing code", func(t *testing.T) {
		resp := callback(t, env, url.Values{"state": {"s"}}, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("state cookie mismatch", func(t *testing.T) {
		state, _, _ := startGoogleLogin(t, env)
		resp := callback(t, env, url.Values{"state": {state}, "code": {"c"}}, &http.Cookie{Name: stateCookie, Value: "other"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("foreign nonce", func(t *testing.T) {
		state, _, cookie := startGoogleLogin(t, env)
		google.setNonce(auth.SHA256Hex("replayed"))
		resp := callback(t, env, url.Values{"state": {state}, "code": {"c"}}, cookie)
		defer resp.Body.Close()

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, ErrCodeOAuthCallbackFailed, body.Error)
	})
}

func TestGoogleRoutesAbsentWithoutOAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.server.URL + "/v1/auth/google/start")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
