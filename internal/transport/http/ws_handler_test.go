package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fan-quiz-service/internal/app"
	"fan-quiz-service/internal/auth"
	authjwt "fan-quiz-service/internal/auth/jwt"
	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/infra/memory"
	"fan-quiz-service/internal/quiz"
)

var localFan = domain.User{ID: "u-9", Email: "karim@example.com", DisplayName: "Karim Benzema"}

type testEnv struct {
	server *httptest.Server
	store  *memory.SessionStore
	tokens *authjwt.Manager
}

func newTestEnv(t *testing.T, oauth *auth.OAuthService) *testEnv {
	t.Helper()
	store := memory.NewSessionStore()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader([]domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1},
		{ID: "q2", Text: "What is 3 + 3?", Options: []string{"6", "7", "8", "9"}, CorrectAnswer: 0},
	}), time.Minute)
	service := app.NewQuizService(store, bank,
		app.WithSessionOptions(quiz.WithShuffler(func(int, func(i, j int)) {})),
	)
	tokens := authjwt.NewManager(authjwt.TokenConfig{Secret: []byte("test-secret")})

	server := httptest.NewServer(NewRouter(RouterConfig{
		Quiz:   service,
		Tokens: tokens,
		OAuth:  oauth,
		Local:  auth.NewStaticProvider(localFan, 0),
		Logger: zerolog.Nop(),
	}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: store, tokens: tokens}
}

func (e *testEnv) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws" + query
}

func (e *testEnv) localToken(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(e.server.URL+"/v1/auth/static/token", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "KB", body.User.Initials)
	return body.AccessToken
}

type wsState struct {
	SessionID string `json:"sessionId"`
	quiz.View
}

type wsReply struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsReply
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) wsState {
	t.Helper()
	msg := readReply(t, conn)
	require.Equal(t, msgState, msg.Type, "payload: %s", msg.Payload)
	var state wsState
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	return state
}

func readError(t *testing.T, conn *websocket.Conn) errorPayload {
	t.Helper()
	msg := readReply(t, conn)
	require.Equal(t, msgError, msg.Type)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func TestWebSocketRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(env.wsURL("?token=garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.store.Len())
}

func TestWebSocketQuizFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.localToken(t)

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL(""), header)
	require.NoError(t, err)
	defer conn.Close()

	state := readState(t, conn)
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, 1, state.QuestionNumber)
	assert.Equal(t, 2, state.TotalQuestions)
	for _, opt := range state.Question.Options {
		assert.Nil(t, opt.Correct, "answer key must stay hidden before submit")
	}

	send(t, conn, msgSelect, map[string]int{"option": 1})
	state = readState(t, conn)
	require.NotNil(t, state.SelectedOption)
	assert.Equal(t, 1, *state.SelectedOption)

	send(t, conn, msgSubmit, nil)
	state = readState(t, conn)
	assert.True(t, state.AnswerLocked)
	assert.Equal(t, 1, state.Score)
	require.NotNil(t, state.Question.Options[1].Correct)
	assert.True(t, *state.Question.Options[1].Correct)

	send(t, conn, msgNext, nil)
	assert.Equal(t, 2, readState(t, conn).QuestionNumber)

	send(t, conn, msgSelect, map[string]int{"option": 3})
	readState(t, conn)
	send(t, conn, msgSubmit, nil)
	state = readState(t, conn)
	require.NotNil(t, state.Question.Options[3].MarkedWrong)
	assert.True(t, *state.Question.Options[3].MarkedWrong)

	send(t, conn, msgNext, nil)
	state = readState(t, conn)
	assert.True(t, state.ResultsVisible)
	require.NotNil(t, state.Result)
	assert.Equal(t, 50, state.Result.Percentage)
	assert.Equal(t, quiz.TierMid, state.Result.Tier)

	send(t, conn, msgRestart, nil)
	state = readState(t, conn)
	assert.False(t, state.ResultsVisible)
	assert.Equal(t, 0, state.Score)
	assert.Equal(t, 1, state.QuestionNumber)
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("?token="+env.localToken(t)), nil)
	require.NoError(t, err)
	defer conn.Close()
	readState(t, conn)

	send(t, conn, "answer", nil)
	assert.Equal(t, ErrCodeUnknownMessageType, readError(t, conn).Code)

	send(t, conn, msgSelect, map[string]string{"choice": "b"})
	assert.Equal(t, ErrCodeInvalidPayload, readError(t, conn).Code)

	send(t, conn, msgState, nil)
	state := readState(t, conn)
	assert.Nil(t, state.SelectedOption)
}

func TestWebSocketCloseAbandonsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("?token="+env.localToken(t)), nil)
	require.NoError(t, err)
	readState(t, conn)
	assert.Equal(t, 1, env.store.Len())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMeAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/v1/me")
	require.NoError(t, err)
	var errBody ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ErrCodeAuthenticationRequired, errBody.Error)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.localToken(t))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "u-9", me.ID)
	assert.Equal(t, "Karim Benzema", me.DisplayName)
	assert.Equal(t, "KB", me.Initials)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	expired := authjwt.NewManager(authjwt.TokenConfig{Secret: []byte("test-secret"), TTL: -time.Minute})
	token, err := expired.Issue(localFan)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ErrCodeTokenExpired, body.Error)
}

func TestEnqueueStopsWhenWriterIsGone(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})
	enqueue := enqueuer(send, writerDone)

	assert.True(t, enqueue(outboundMessage[any]{Type: msgState}))

	close(writerDone)
	done := make(chan bool)
	go func() { done <- enqueue(outboundMessage[any]{Type: msgState}) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer after the writer stopped")
	}
}

func TestReadLoopEndsWhenWriterStops(t *testing.T) {
	store := memory.NewSessionStore()
	bank := memory.NewBankRepository(memory.NewStaticBankLoader([]domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1},
	}), time.Minute)
	service := app.NewQuizService(store, bank)
	ctx := context.Background()
	id, _, err := service.Start(ctx, &localFan)
	require.NoError(t, err)

	h := NewWSHandler(service, zerolog.Nop())
	reads := 0
	read := func(v any) error {
		reads++
		v.(*inboundMessage).Type = msgState
		return nil
	}
	writerDone := make(chan struct{})
	close(writerDone)
	enqueue := enqueuer(make(chan outboundMessage[any]), writerDone)

	finished := make(chan struct{})
	go func() {
		h.readLoop(ctx, id, localFan.ID, read, enqueue)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("read loop kept running after the writer stopped")
	}
	assert.Equal(t, 1, reads)
}
