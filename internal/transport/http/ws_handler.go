package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fan-quiz-service/internal/domain"
	"fan-quiz-service/internal/quiz"
)

// QuizPlayer is the slice of app.QuizService the socket drives.
type QuizPlayer interface {
	Start(ctx context.Context, user *domain.User) (string, quiz.View, error)
	Select(ctx context.Context, id, userID string, option int) (quiz.View, error)
	Submit(ctx context.Context, id, userID string) (quiz.View, error)
	Advance(ctx context.Context, id, userID string) (quiz.View, error)
	Restart(ctx context.Context, id, userID string) (quiz.View, error)
	View(ctx context.Context, id, userID string) (quiz.View, error)
	Abandon(ctx context.Context, id, userID string)
}

type WSHandler struct {
	service  QuizPlayer
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service QuizPlayer, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

const (
	msgSelect  = "select"
	msgSubmit  = "submit"
	msgNext    = "next"
	msgRestart = "restart"
	msgState   = "state"
	msgError   = "error"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type statePayload struct {
	SessionID string `json:"sessionId"`
	quiz.View
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS runs one quiz session over a websocket. The user must already be
// on the request context, so the upgrade is refused for anonymous callers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		RespondUnauthorized(w, ErrCodeAuthenticationRequired, "Sign in to play")
		return
	}

	logger := requestLogger(r, h.logger).With().Str("user_id", user.ID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, view, err := h.service.Start(ctx, &user)
	if err != nil {
		logger.Error().Err(err).Msg("start quiz session")
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: msgError, Payload: errorPayload{
			Code:    ErrCodeSessionStartFailed,
			Message: "Could not start the quiz",
		}})
		return
	}
	defer h.service.Abandon(context.WithoutCancel(ctx), sessionID, user.ID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	enqueue := enqueuer(send, writerDone)

	logger.Debug().Str("session_id", sessionID).Msg("ws quiz session opened")
	if enqueue(stateMessage(sessionID, view)) {
		h.readLoop(ctx, sessionID, user.ID, conn.ReadJSON, enqueue)
	}

	close(send)
	<-writerDone
}

// enqueuer hands messages to the writer goroutine and reports false once it
// has stopped, so a dead writer never blocks the read side.
func enqueuer(send chan<- outboundMessage[any], writerDone <-chan struct{}) func(outboundMessage[any]) bool {
	return func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}
}

// readLoop answers every inbound message until the read fails or the writer
// stops.
func (h *WSHandler) readLoop(ctx context.Context, sessionID, userID string, read func(any) error, enqueue func(outboundMessage[any]) bool) {
	for {
		var inbound inboundMessage
		if err := read(&inbound); err != nil {
			return
		}
		var msg outboundMessage[any]
		view, err := h.dispatch(ctx, sessionID, userID, inbound)
		if err != nil {
			msg = errorMessage(err)
		} else {
			msg = stateMessage(sessionID, view)
		}
		if !enqueue(msg) {
			h.logger.Debug().Str("session_id", sessionID).Msg("ws writer stopped")
			return
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID, userID string, msg inboundMessage) (quiz.View, error) {
	switch msg.Type {
	case msgSelect:
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Option == nil {
			return quiz.View{}, errInvalidPayload
		}
		return h.service.Select(ctx, sessionID, userID, *payload.Option)
	case msgSubmit:
		return h.service.Submit(ctx, sessionID, userID)
	case msgNext:
		return h.service.Advance(ctx, sessionID, userID)
	case msgRestart:
		return h.service.Restart(ctx, sessionID, userID)
	case msgState:
		return h.service.View(ctx, sessionID, userID)
	default:
		return quiz.View{}, errUnknownMessage
	}
}

var (
	errInvalidPayload = errors.New("select needs a payload like {\"option\": 0}")
	errUnknownMessage = errors.New("unsupported message type")
)

func stateMessage(sessionID string, view quiz.View) outboundMessage[any] {
	return outboundMessage[any]{Type: msgState, Payload: statePayload{SessionID: sessionID, View: view}}
}

func errorMessage(err error) outboundMessage[any] {
	code := ErrCodeInternalError
	switch {
	case errors.Is(err, errInvalidPayload):
		code = ErrCodeInvalidPayload
	case errors.Is(err, errUnknownMessage):
		code = ErrCodeUnknownMessageType
	case errors.Is(err, domain.ErrSessionNotFound):
		code = ErrCodeSessionNotFound
	}
	return outboundMessage[any]{Type: msgError, Payload: errorPayload{Code: code, Message: err.Error()}}
}
